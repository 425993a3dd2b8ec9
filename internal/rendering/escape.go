package rendering

import (
	"strings"
	"unicode"
)

// maxFilenameBytes keeps names under the common 255-byte limit once ".html" is appended.
const maxFilenameBytes = 240

// SanitizeFilename turns a book title into a portable file name.
// Path separators and characters reserved on Windows become '_'.
func SanitizeFilename(title string) string {
	var result strings.Builder
	result.Grow(len(title))

	for _, r := range title {
		switch {
		case r == '/', r == '\\', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			result.WriteRune('_')
		case unicode.IsSpace(r):
			result.WriteRune(' ')
		case unicode.IsControl(r):
		default:
			result.WriteRune(r)
		}
	}

	name := strings.Trim(strings.Join(strings.Fields(result.String()), " "), ". ")
	for len(name) > maxFilenameBytes {
		runes := []rune(name)
		name = string(runes[:len(runes)-1])
	}
	if name == "" {
		return "book"
	}
	return name
}
