package errors

import (
	"testing"
)

func TestValidateTaxonName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "Homo_sapiens", false},
		{"valid with dash", "isolate-42", false},
		{"valid with dot", "hCoV-19.2021", false},
		{"valid with spaces", "new zealand", false},
		{"valid with slash", "A/duck/Alberta/35/76", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"carriage return", "foo\rbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTaxonName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTaxonName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAnnotationKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "location", false},
		{"with underscore", "posterior_prob", false},
		{"with dot", "rate.median", false},
		{"with percent", "height_95%_HPD", false},
		{"display attribute", "!colour", false},

		{"empty", "", true},
		{"leading digit", "95hpd", true},
		{"spaces", "my key", true},
		{"braces", "set{1}", true},
		{"bare bang", "!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnnotationKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAnnotationKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidAnnotation) {
				t.Errorf("ValidateAnnotationKey(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateColour(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"hex long", "#ff0000", false},
		{"hex short", "#f00", false},
		{"hex upper", "#FF8800", false},
		{"named", "steelblue", false},

		{"empty", "", true},
		{"bad hex length", "#ff00", true},
		{"bad hex chars", "#gg0000", true},
		{"with spaces", "light blue", true},
		{"injection", "red\" onload=\"x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColour(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateColour(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://example.com/tree.nexus", false},
		{"http", "http://example.com/tree.nwk", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"file", "file:///etc/passwd", true},
		{"javascript", "javascript:alert(1)", true},
		{"no scheme", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "trees/run1.trees", false},
		{"valid nested", "data/beast/mcc/summary.tree", false},
		{"valid filename only", "tree.nwk", false},
		{"valid with dots", "v1.2.3/tree.nexus", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 600)), true},
		{"absolute path", "/etc/passwd", true},
		{"path traversal", "../../../etc/passwd", true},
		{"path traversal middle", "foo/../bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidTree,
		ErrCodeInvalidFormat,
		ErrCodeInvalidAnnotation,
		ErrCodeInvalidColour,
		ErrCodeInvalidPath,
		ErrCodeNotFound,
		ErrCodeNodeNotFound,
		ErrCodeTreeNotFound,
		ErrCodeFileNotFound,
		ErrCodeSessionNotFound,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeRateLimited,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
