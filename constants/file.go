package constants

import "strings"

// InputFormat is how a receipt reaches the pipeline.
type InputFormat string

const (
	FormatImage     InputFormat = "IMAGE"
	FormatFragments InputFormat = "FRAGMENTS"
	FormatUnknown   InputFormat = "UNKNOWN"
)

// AllowedExtensions holds the file extensions accepted by the inbox and CLI.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"json": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat reports which reader handles a file extension.
func MapExtToFormat(ext string) InputFormat {
	switch NormalizeExt(ext) {
	case "jpg", "jpeg", "png", "tif", "tiff":
		return FormatImage
	case "json":
		return FormatFragments
	default:
		return FormatUnknown
	}
}

// Outputs written by the daemon carry this suffix and are never re-ingested.
const ResultSuffix = ".receipt.json"

// MaxVisionMB caps images sent to a vision model.
const MaxVisionMB = 20
