// Package dataset owns the in-memory element tree.
//
// Ownership boundary:
// - tags, value representations and length discriminants
// - elements, items, records and their tag-keyed accessors
// - numeric views over element payloads
// - encapsulated pixel payload (offset table + fragments)
package dataset
