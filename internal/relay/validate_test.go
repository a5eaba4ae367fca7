package relay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validImage(totalLen int) string {
	prefix := "data:image/jpeg;base64,"
	return prefix + strings.Repeat("A", totalLen-len(prefix))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantField string
	}{
		{
			name: "valid request",
			req:  Request{ImageBase64: validImage(1000), Style: "Art Deco"},
		},
		{
			name:      "missing image",
			req:       Request{Style: "Art Deco"},
			wantField: "imageBase64",
		},
		{
			name:      "not a data URL",
			req:       Request{ImageBase64: "https://example.com/room.jpg", Style: "Art Deco"},
			wantField: "imageBase64",
		},
		{
			name:      "non-image data URL",
			req:       Request{ImageBase64: "data:text/plain;base64,aGVsbG8=", Style: "Art Deco"},
			wantField: "imageBase64",
		},
		{
			name:      "unsupported mime type",
			req:       Request{ImageBase64: "data:image/tiff;base64,AAAA", Style: "Art Deco"},
			wantField: "imageBase64",
		},
		{
			name:      "style outside the enumerated set",
			req:       Request{ImageBase64: validImage(1000), Style: "Cyberpunk"},
			wantField: "style",
		},
		{
			name:      "empty style",
			req:       Request{ImageBase64: validImage(1000), Style: ""},
			wantField: "style",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidate_SizeBoundary(t *testing.T) {
	atCeiling := Request{ImageBase64: validImage(MaxImageBytes - 1), Style: "Rustic"}
	assert.NoError(t, atCeiling.Validate())

	oneOver := Request{ImageBase64: validImage(MaxImageBytes), Style: "Rustic"}
	var verr *ValidationError
	require.ErrorAs(t, oneOver.Validate(), &verr)
	assert.Equal(t, "imageBase64", verr.Field)
}

func TestStyleAllowed_CoversWholeList(t *testing.T) {
	for _, s := range AllowedStyles {
		assert.True(t, StyleAllowed(s), s)
	}
	assert.False(t, StyleAllowed("modern luxury"), "matching is case sensitive")
}

func TestSanitizeDescription(t *testing.T) {
	assert.Equal(t, "A room interior", sanitizeDescription(""))
	assert.Equal(t, "A room interior", sanitizeDescription("@#$%^&*"))
	assert.Equal(t, "script", sanitizeDescription("<script>"))
	assert.Equal(t, `C\kitchen`, sanitizeDescription(`C:\kitchen`), "backslash is allowed")
	assert.Equal(t,
		"A bright kitchen, south-facing windows.",
		sanitizeDescription("A bright kitchen, south-facing windows. !!!"))

	long := strings.Repeat("a", 600)
	assert.Len(t, sanitizeDescription(long), 500)
}
