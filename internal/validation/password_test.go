package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Sturdy-Pass1", ""},
		{"too short", "Ab1", "at least 10"},
		{"too long", "Aa1" + strings.Repeat("x", 130), "at most 128"},
		{"no upper", "lowercase123", "uppercase"},
		{"no lower", "UPPERCASE123", "lowercase"},
		{"no digit", "NoDigitsHere", "digit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
