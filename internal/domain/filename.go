package domain

import (
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

const maxFilenameLength = 120

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func init() {
	// Filenames keep the title's case.
	slug.Lowercase = false
}

// SanitizeFilename reduces a title to [A-Za-z0-9_] for Content-Disposition.
// Non-ASCII letters are transliterated first so "Café" keeps its letters.
func SanitizeFilename(title string) string {
	name := slug.Make(title)
	name = strings.ReplaceAll(name, "-", "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "_")
	if len(name) > maxFilenameLength {
		name = strings.TrimRight(name[:maxFilenameLength], "_")
	}
	if name == "" {
		return "video"
	}
	return name
}

// AttachmentFilename builds "<sanitized-title>.<ext>"
func AttachmentFilename(title string, enc Encoding) string {
	ext := unsafeFilenameChars.ReplaceAllString(enc.Extension(), "")
	if ext == "" {
		ext = "bin"
	}
	return SanitizeFilename(title) + "." + ext
}
