package validation

import "testing"

func TestValidateUserCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{
			name: "valid code",
			code: "BCDF-GHJK",
		},
		{
			name: "lowercase input is normalized",
			code: "bcdf-ghjk",
		},
		{
			name: "surrounding whitespace is trimmed",
			code: "  BCDF-GHJK  ",
		},
		{
			name:    "too short",
			code:    "BCD-FGH",
			wantErr: true,
		},
		{
			name:    "too long",
			code:    "BCDFG-HJKLM",
			wantErr: true,
		},
		{
			name:    "missing separator",
			code:    "BCDFGHJK",
			wantErr: true,
		},
		{
			name:    "vowels rejected",
			code:    "ABCD-EFGH",
			wantErr: true,
		},
		{
			name:    "digits rejected",
			code:    "BCD1-GHJ2",
			wantErr: true,
		},
		{
			name:    "too many repeats",
			code:    "BBBB-CDFG",
			wantErr: true,
		},
		{
			name:    "empty",
			code:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserCode(tt.code)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for %q, got nil", tt.code)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tt.code, err)
			}
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BCDF-GHJK", "BCDFGHJK"},
		{"bcdf-ghjk", "BCDFGHJK"},
		{"  bcdfghjk ", "BCDFGHJK"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BCDFGHJK", "BCDF-GHJK"},
		{"BCD", "BCD"}, // too short to format
	}

	for _, tt := range tests {
		if got := FormatCode(tt.in); got != tt.want {
			t.Errorf("FormatCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	code := "BCDF-GHJK"
	if got := FormatCode(NormalizeCode(code)); got != code {
		t.Errorf("round trip of %q produced %q", code, got)
	}
}
