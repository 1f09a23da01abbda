package intake

import (
	"encoding/base64"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// PreviewDataURL renders image bytes as an inline data URL.
func PreviewDataURL(mediaType string, data []byte) string {
	var b strings.Builder
	b.Grow(len(mediaType) + 13 + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// UploadFromFile builds an upload for a file read from disk. The declared
// type comes from the extension, falling back to content sniffing.
func UploadFromFile(name string, data []byte) ImageUpload {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return ImageUpload{Filename: filepath.Base(name), ContentType: ct, Data: data}
}
