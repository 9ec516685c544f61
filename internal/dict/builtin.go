package dict

import (
	"sync"

	"github.com/danmuck/dcmstream/internal/dataset"
)

var (
	builtinOnce sync.Once
	builtin     *Dictionary
)

// Builtin returns the table compiled into the module. It is built on first
// use and never modified afterwards.
func Builtin() *Dictionary {
	builtinOnce.Do(func() {
		builtin = New(builtinEntries()...)
	})
	return builtin
}

func e(group, element uint16, vr dataset.VR, vm, keyword, name string) Entry {
	m, err := ParseVM(vm)
	if err != nil {
		panic(err)
	}
	return Entry{Tag: dataset.NewTag(group, element), VR: vr, VM: m, Keyword: keyword, Name: name}
}

func builtinEntries() []Entry {
	return []Entry{
		// file meta information
		e(0x0002, 0x0000, dataset.UL, "1", "FileMetaInformationGroupLength", "File Meta Information Group Length"),
		e(0x0002, 0x0001, dataset.OB, "1", "FileMetaInformationVersion", "File Meta Information Version"),
		e(0x0002, 0x0002, dataset.UI, "1", "MediaStorageSOPClassUID", "Media Storage SOP Class UID"),
		e(0x0002, 0x0003, dataset.UI, "1", "MediaStorageSOPInstanceUID", "Media Storage SOP Instance UID"),
		e(0x0002, 0x0010, dataset.UI, "1", "TransferSyntaxUID", "Transfer Syntax UID"),
		e(0x0002, 0x0012, dataset.UI, "1", "ImplementationClassUID", "Implementation Class UID"),
		e(0x0002, 0x0013, dataset.SH, "1", "ImplementationVersionName", "Implementation Version Name"),
		e(0x0002, 0x0016, dataset.AE, "1", "SourceApplicationEntityTitle", "Source Application Entity Title"),

		// identification
		e(0x0008, 0x0005, dataset.CS, "1-n", "SpecificCharacterSet", "Specific Character Set"),
		e(0x0008, 0x0008, dataset.CS, "2-n", "ImageType", "Image Type"),
		e(0x0008, 0x0016, dataset.UI, "1", "SOPClassUID", "SOP Class UID"),
		e(0x0008, 0x0018, dataset.UI, "1", "SOPInstanceUID", "SOP Instance UID"),
		e(0x0008, 0x0020, dataset.DA, "1", "StudyDate", "Study Date"),
		e(0x0008, 0x0030, dataset.TM, "1", "StudyTime", "Study Time"),
		e(0x0008, 0x0050, dataset.SH, "1", "AccessionNumber", "Accession Number"),
		e(0x0008, 0x0060, dataset.CS, "1", "Modality", "Modality"),
		e(0x0008, 0x0070, dataset.LO, "1", "Manufacturer", "Manufacturer"),
		e(0x0008, 0x0090, dataset.PN, "1", "ReferringPhysicianName", "Referring Physician's Name"),
		e(0x0008, 0x1030, dataset.LO, "1", "StudyDescription", "Study Description"),
		e(0x0008, 0x103E, dataset.LO, "1", "SeriesDescription", "Series Description"),
		e(0x0008, 0x1140, dataset.SQ, "1", "ReferencedImageSequence", "Referenced Image Sequence"),
		e(0x0008, 0x1150, dataset.UI, "1", "ReferencedSOPClassUID", "Referenced SOP Class UID"),
		e(0x0008, 0x1155, dataset.UI, "1", "ReferencedSOPInstanceUID", "Referenced SOP Instance UID"),
		e(0x0008, 0x9215, dataset.SQ, "1", "DerivationCodeSequence", "Derivation Code Sequence"),
		e(0x0008, 0x0100, dataset.SH, "1", "CodeValue", "Code Value"),
		e(0x0008, 0x0102, dataset.SH, "1", "CodingSchemeDesignator", "Coding Scheme Designator"),
		e(0x0008, 0x0104, dataset.LO, "1", "CodeMeaning", "Code Meaning"),

		// patient
		e(0x0010, 0x0010, dataset.PN, "1", "PatientName", "Patient's Name"),
		e(0x0010, 0x0020, dataset.LO, "1", "PatientID", "Patient ID"),
		e(0x0010, 0x0030, dataset.DA, "1", "PatientBirthDate", "Patient's Birth Date"),
		e(0x0010, 0x0040, dataset.CS, "1", "PatientSex", "Patient's Sex"),
		e(0x0010, 0x1010, dataset.AS, "1", "PatientAge", "Patient's Age"),
		e(0x0010, 0x1030, dataset.DS, "1", "PatientWeight", "Patient's Weight"),

		// acquisition
		e(0x0018, 0x0050, dataset.DS, "1", "SliceThickness", "Slice Thickness"),
		e(0x0018, 0x0088, dataset.DS, "1", "SpacingBetweenSlices", "Spacing Between Slices"),
		e(0x0018, 0x1020, dataset.LO, "1-n", "SoftwareVersions", "Software Versions"),

		// study and series
		e(0x0020, 0x000D, dataset.UI, "1", "StudyInstanceUID", "Study Instance UID"),
		e(0x0020, 0x000E, dataset.UI, "1", "SeriesInstanceUID", "Series Instance UID"),
		e(0x0020, 0x0010, dataset.SH, "1", "StudyID", "Study ID"),
		e(0x0020, 0x0011, dataset.IS, "1", "SeriesNumber", "Series Number"),
		e(0x0020, 0x0013, dataset.IS, "1", "InstanceNumber", "Instance Number"),
		e(0x0020, 0x0032, dataset.DS, "3", "ImagePositionPatient", "Image Position (Patient)"),
		e(0x0020, 0x0037, dataset.DS, "6", "ImageOrientationPatient", "Image Orientation (Patient)"),
		e(0x0020, 0x0052, dataset.UI, "1", "FrameOfReferenceUID", "Frame of Reference UID"),

		// image pixel
		e(0x0028, 0x0002, dataset.US, "1", "SamplesPerPixel", "Samples per Pixel"),
		e(0x0028, 0x0004, dataset.CS, "1", "PhotometricInterpretation", "Photometric Interpretation"),
		e(0x0028, 0x0006, dataset.US, "1", "PlanarConfiguration", "Planar Configuration"),
		e(0x0028, 0x0008, dataset.IS, "1", "NumberOfFrames", "Number of Frames"),
		e(0x0028, 0x0010, dataset.US, "1", "Rows", "Rows"),
		e(0x0028, 0x0011, dataset.US, "1", "Columns", "Columns"),
		e(0x0028, 0x0030, dataset.DS, "2", "PixelSpacing", "Pixel Spacing"),
		e(0x0028, 0x0100, dataset.US, "1", "BitsAllocated", "Bits Allocated"),
		e(0x0028, 0x0101, dataset.US, "1", "BitsStored", "Bits Stored"),
		e(0x0028, 0x0102, dataset.US, "1", "HighBit", "High Bit"),
		e(0x0028, 0x0103, dataset.US, "1", "PixelRepresentation", "Pixel Representation"),
		e(0x0028, 0x1050, dataset.DS, "1-n", "WindowCenter", "Window Center"),
		e(0x0028, 0x1051, dataset.DS, "1-n", "WindowWidth", "Window Width"),
		e(0x0028, 0x1052, dataset.DS, "1", "RescaleIntercept", "Rescale Intercept"),
		e(0x0028, 0x1053, dataset.DS, "1", "RescaleSlope", "Rescale Slope"),
		e(0x0028, 0x1101, dataset.US, "3", "RedPaletteColorLookupTableDescriptor", "Red Palette Color Lookup Table Descriptor"),
		e(0x0028, 0x1201, dataset.OW, "1", "RedPaletteColorLookupTableData", "Red Palette Color Lookup Table Data"),
		e(0x0028, 0x3010, dataset.SQ, "1", "VOILUTSequence", "VOI LUT Sequence"),
		e(0x0028, 0x3002, dataset.US, "3", "LUTDescriptor", "LUT Descriptor"),
		e(0x0028, 0x3006, dataset.US, "1-n", "LUTData", "LUT Data"),

		// misc
		e(0x0040, 0xA730, dataset.SQ, "1", "ContentSequence", "Content Sequence"),
		e(0x0062, 0x0002, dataset.SQ, "1", "SegmentSequence", "Segment Sequence"),
		e(0x0062, 0x0004, dataset.US, "1", "SegmentNumber", "Segment Number"),
		e(0x0088, 0x0200, dataset.SQ, "1", "IconImageSequence", "Icon Image Sequence"),
		e(0x0018, 0x9074, dataset.DT, "1", "FrameAcquisitionDateTime", "Frame Acquisition DateTime"),
		e(0x0028, 0x9110, dataset.SQ, "1", "PixelMeasuresSequence", "Pixel Measures Sequence"),
		e(0x5200, 0x9229, dataset.SQ, "1", "SharedFunctionalGroupsSequence", "Shared Functional Groups Sequence"),
		e(0x5200, 0x9230, dataset.SQ, "1", "PerFrameFunctionalGroupsSequence", "Per-frame Functional Groups Sequence"),
		e(0x0020, 0x9113, dataset.SQ, "1", "PlanePositionSequence", "Plane Position Sequence"),
		e(0x0028, 0x0106, dataset.US, "1", "SmallestImagePixelValue", "Smallest Image Pixel Value"),
		e(0x0028, 0x0107, dataset.US, "1", "LargestImagePixelValue", "Largest Image Pixel Value"),
		e(0x0054, 0x0081, dataset.US, "1", "NumberOfSlices", "Number of Slices"),
		e(0x0018, 0x6011, dataset.SQ, "1", "SequenceOfUltrasoundRegions", "Sequence of Ultrasound Regions"),
		e(0x0018, 0x602C, dataset.FD, "1", "PhysicalDeltaX", "Physical Delta X"),
		e(0x0018, 0x6020, dataset.SL, "1", "ReferencePixelX0", "Reference Pixel X0"),
		e(0x0028, 0x0009, dataset.AT, "1-n", "FrameIncrementPointer", "Frame Increment Pointer"),
		e(0x0066, 0x0016, dataset.OF, "1", "PointCoordinatesData", "Point Coordinates Data"),
		e(0x0066, 0x0040, dataset.OL, "1", "LongPrimitivePointIndexList", "Long Primitive Point Index List"),
		e(0x0028, 0x1408, dataset.OW, "1", "BlendingLookupTableData", "Blending Lookup Table Data"),
		e(0x0040, 0xA160, dataset.UT, "1", "TextValue", "Text Value"),
		e(0x0008, 0x1190, dataset.UR, "1", "RetrieveURL", "Retrieve URL"),
		e(0x0042, 0x0011, dataset.OB, "1", "EncapsulatedDocument", "Encapsulated Document"),
		e(0x0018, 0x9219, dataset.SS, "1", "TagAngleSecondAxis", "Tag Angle Second Axis"),
		e(0x0008, 0x0119, dataset.UC, "1", "LongCodeValue", "Long Code Value"),
		e(0x0066, 0x0025, dataset.FL, "1-n", "VectorCoordinateData", "Vector Coordinate Data"),
		e(0x0072, 0x0082, dataset.SV, "1-n", "SelectorSVValue", "Selector SV Value"),
		e(0x0072, 0x0083, dataset.UV, "1-n", "SelectorUVValue", "Selector UV Value"),
		e(0x7FE0, 0x0001, dataset.OV, "1", "ExtendedOffsetTable", "Extended Offset Table"),
		e(0x7FE0, 0x0002, dataset.OV, "1", "ExtendedOffsetTableLengths", "Extended Offset Table Lengths"),
		e(0x7FE0, 0x0008, dataset.OF, "1", "FloatPixelData", "Float Pixel Data"),
		e(0x7FE0, 0x0009, dataset.OD, "1", "DoubleFloatPixelData", "Double Float Pixel Data"),
		e(0x7FE0, 0x0010, dataset.OW, "1", "PixelData", "Pixel Data"),
		e(0xFFFA, 0xFFFA, dataset.SQ, "1", "DigitalSignaturesSequence", "Digital Signatures Sequence"),
		e(0xFFFC, 0xFFFC, dataset.OB, "1", "DataSetTrailingPadding", "Data Set Trailing Padding"),
	}
}
