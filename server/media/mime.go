package media

import "strings"

/*
Content types are derived from the filename extension only. The store's
content-type metadata is ignored: it reflects whatever the uploader claimed,
and strict mobile players refuse playback when the served type disagrees with
this table elsewhere in the product.
*/

////////////////////////////////////////////////////////////////////////////////

const defaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	// videos
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"m4v":  "video/x-m4v",
	// images
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
}

// ContentTypeForExt maps a filename extension (without dot, any case) to a
// MIME type, defaulting to application/octet-stream.
func ContentTypeForExt(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return defaultContentType
}
