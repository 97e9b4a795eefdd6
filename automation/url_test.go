package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw     string
		wantMsg string
	}{
		{"https://example.com", ""},
		{"http://localhost:3000/dashboard", ""},
		{"http://127.0.0.1:8080/dashboard", ""},
		{"HTTPS://Example.com/path?q=1", ""},
		{"", msgInvalidFormat},
		{"example.com", msgInvalidFormat},
		{"http://[::1", msgInvalidFormat},
		{"http://localhost:3001/api/agents", msgInternalAPI},
		{"ftp://localhost/api/files", msgInternalAPI},
		{"http://127.0.0.1:5000/api/agents", msgInternalAPI},
		{"http://[::1]:5000/api/agents", msgInternalAPI},
		{"http://app.localhost/api/x", msgInternalAPI},
		{"http://LOCALHOST:5000/api/agents", msgInternalAPI},
		{"https://example.com/api/public", ""},
		{"ftp://example.com/file", msgUnsupportedScheme},
		{"mailto:someone@example.com", msgUnsupportedScheme},
		{"http:///nohost", msgInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := ValidateURL(tt.raw)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidURL)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
