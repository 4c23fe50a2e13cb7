package constants

import "strings"

// InputFormats holds the document formats the CLIs accept as pre-extracted text.
var InputFormats = []string{"TXT", "CSV"}

// AllowedExtensions holds the default allowed file extensions for batch ingestion.
var AllowedExtensions = map[string]struct{}{
	"txt": {},
	"csv": {},
	"md":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the canonical format for an extension, or "" if unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "csv":
		return "CSV"
	case "txt", "md":
		return "TXT"
	default:
		return ""
	}
}
