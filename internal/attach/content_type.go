package attach

import (
	"mime"
	"path/filepath"
	"strings"
)

// contentTypes pins the types of formats common in gait documentation so
// the result does not depend on the host's mime tables.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".c3d":  "application/octet-stream",
	".dcm":  "application/dicom",
}

const defaultContentType = "application/octet-stream"

// ContentType derives a MIME type from the file name's extension.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return defaultContentType
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return defaultContentType
}
