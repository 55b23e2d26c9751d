package extract

import (
	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
)

// ResolveMediaType keeps a specific declared type and sniffs the content when
// the declaration is missing or generic.
func ResolveMediaType(data []byte, declared string) string {
	mt := constants.NormalizeMediaType(declared)
	if mt != "" && mt != constants.MediaTypeOctetStream {
		return mt
	}
	return Detect(data)
}

// Detect sniffs the media type of data, reduced to the closest supported type.
func Detect(data []byte) string {
	m := mimetype.Detect(data)
	for ; m != nil; m = m.Parent() {
		mt := constants.NormalizeMediaType(m.String())
		if _, ok := constants.SupportedMediaTypes[mt]; ok {
			return mt
		}
	}
	return constants.NormalizeMediaType(mimetype.Detect(data).String())
}
