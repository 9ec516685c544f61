package auth

import (
	"errors"
	"testing"
)

func TestStaticTokenValidate(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "prefix denied", stored: "abc", input: "ab", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestBearer(t *testing.T) {
	cases := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc":    {"abc", true},
		" bearer  abc ": {"abc", true},
		"Basic abc":     {"", false},
		"Bearer":        {"", false},
		"Bearer   ":     {"", false},
		"":              {"", false},
	}
	for header, want := range cases {
		token, ok := Bearer(header)
		if token != want.token || ok != want.ok {
			t.Fatalf("Bearer(%q) = %q, %v", header, token, ok)
		}
	}
}
