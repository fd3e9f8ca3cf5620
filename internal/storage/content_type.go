package storage

import "strings"

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"mp4":  "video/mp4",
}

// ContentTypeForExtension maps an output extension to its MIME type,
// defaulting to application/octet-stream.
func ContentTypeForExtension(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ObjectKey is the bucket key of an artifact: the resource path without its
// leading slash, then "{hash}.{ext}".
func ObjectKey(resourcePath, hash, ext string) string {
	return strings.TrimLeft(resourcePath, "/") + "/" + hash + "." + strings.TrimPrefix(ext, ".")
}
