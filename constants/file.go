package constants

import "strings"

// Media types accepted for resume uploads.
const (
	MediaTypePDF         = "application/pdf"
	MediaTypeDOCX        = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeText        = "text/plain"
	MediaTypeOctetStream = "application/octet-stream"
)

// SupportedMediaTypes maps each accepted media type to its canonical file extension.
var SupportedMediaTypes = map[string]string{
	MediaTypePDF:  "pdf",
	MediaTypeDOCX: "docx",
	MediaTypeText: "txt",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeMediaType drops parameters (e.g. "; charset=utf-8") and lowercases.
func NormalizeMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// ExtForMediaType returns the extension used in object keys, "bin" when unknown.
func ExtForMediaType(mt string) string {
	if ext, ok := SupportedMediaTypes[NormalizeMediaType(mt)]; ok {
		return ext
	}
	return "bin"
}
