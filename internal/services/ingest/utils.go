package ingest

import (
	"path/filepath"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/extract"
)

// ResolveUploadMediaType trusts a specific declared type, then the sniffed
// content, then the file extension. Unknown input stays
// application/octet-stream and fails later as UNSUPPORTED_MEDIA_TYPE.
func ResolveUploadMediaType(data []byte, declared, filename string) string {
	mt := extract.ResolveMediaType(data, declared)
	if _, ok := constants.SupportedMediaTypes[mt]; ok {
		return mt
	}
	ext := constants.NormalizeExt(filepath.Ext(filename))
	for candidate, e := range constants.SupportedMediaTypes {
		if e == ext {
			return candidate
		}
	}
	if mt == "" {
		return constants.MediaTypeOctetStream
	}
	return mt
}
