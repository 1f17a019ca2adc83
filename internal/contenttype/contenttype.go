// Package contenttype maps build output files to MIME content types for
// upload metadata. Common frontend asset extensions are resolved from a
// fixed table; anything else is sniffed from content via mimetype.
package contenttype

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultType is used when an extension is unrecognized and content
// sniffing is inconclusive.
const DefaultType = "application/octet-stream"

// byExtension covers the asset types a frontend build actually emits.
// mimetype resolves most of these too, but the table pins the exact
// values served to browsers (notably .js, which content sniffing
// reports as text/plain).
var byExtension = map[string]string{
	".js":    "application/javascript",
	".mjs":   "application/javascript",
	".css":   "text/css",
	".html":  "text/html",
	".json":  "application/json",
	".map":   "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".ico":   "image/x-icon",
	".txt":   "text/plain",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".eot":   "application/vnd.ms-fontobject",
	".webp":  "image/webp",
	".wasm":  "application/wasm",
}

// ForPath returns the MIME content type for the given file path based on
// its extension alone. Unrecognized extensions yield DefaultType.
func ForPath(path string) string {
	if ct, ok := byExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return DefaultType
}

// Detect returns the content type for a file given its path and content.
// The extension table wins when it has an entry; otherwise the content is
// sniffed. An empty body with an unknown extension yields DefaultType.
func Detect(path string, data []byte) string {
	if ct, ok := byExtension[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	if len(data) == 0 {
		return DefaultType
	}
	mt := mimetype.Detect(data)
	// mimetype appends charset parameters to text types; strip them so
	// object metadata stays comparable across uploads.
	ct := mt.String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
