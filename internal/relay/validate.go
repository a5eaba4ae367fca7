// Package relay validates redesign requests and forwards them to the
// upstream AI gateway. Validation runs before any network call: invalid
// requests never reach the external API.
package relay

import (
	"fmt"
	"regexp"
	"strings"
)

// AllowedStyles is the closed set of redesign styles. Anything outside the
// list is rejected up front so user input never reaches the prompt.
var AllowedStyles = []string{
	"Modern Luxury",
	"Minimalist Scandinavian",
	"Industrial Chic",
	"Modern Farmhouse",
	"Mid-Century Modern",
	"Coastal Contemporary",
	"Dark Academia",
	"Art Deco",
	"Bohemian",
	"Traditional",
	"Contemporary",
	"Rustic",
	"Mediterranean",
	"Japanese Zen",
}

// MaxImageBytes is the exclusive ceiling on the encoded data URL
// (~7.5MB of decoded image). A payload of MaxImageBytes-1 is accepted;
// MaxImageBytes is rejected.
const MaxImageBytes = 10_000_000

var imageDataURL = regexp.MustCompile(`^data:image/(jpeg|jpg|png|webp|gif);base64,`)

// Request is a redesign request.
type Request struct {
	ImageBase64 string `json:"imageBase64"`
	Style       string `json:"style"`
}

// Response is a completed redesign.
type Response struct {
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
}

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the request against the input contract. Checks run in
// order: presence, data-URL prefix, MIME type, size, style.
func (r Request) Validate() error {
	if r.ImageBase64 == "" {
		return &ValidationError{Field: "imageBase64", Message: "image is required"}
	}
	if !strings.HasPrefix(r.ImageBase64, "data:image/") {
		return &ValidationError{Field: "imageBase64", Message: "must be a base64 image data URL"}
	}
	if !imageDataURL.MatchString(r.ImageBase64) {
		return &ValidationError{Field: "imageBase64", Message: "image type must be JPEG, PNG, WebP, or GIF"}
	}
	if len(r.ImageBase64) >= MaxImageBytes {
		return &ValidationError{Field: "imageBase64", Message: "image too large: must be less than ~7.5MB"}
	}
	if !StyleAllowed(r.Style) {
		return &ValidationError{
			Field:   "style",
			Message: "invalid style; allowed styles: " + strings.Join(AllowedStyles, ", "),
		}
	}
	return nil
}

// StyleAllowed reports whether style is in the enumerated set.
func StyleAllowed(style string) bool {
	for _, s := range AllowedStyles {
		if s == style {
			return true
		}
	}
	return false
}

var descriptionChars = regexp.MustCompile(`[^a-zA-Z0-9\s,.'\\-]`)

const defaultDescription = "A room interior"

// sanitizeDescription bounds and strips the vision model's output before it
// is folded into the generation prompt.
func sanitizeDescription(s string) string {
	if len(s) > 500 {
		s = s[:500]
	}
	s = strings.TrimSpace(descriptionChars.ReplaceAllString(s, ""))
	if s == "" {
		return defaultDescription
	}
	return s
}
