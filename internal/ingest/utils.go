package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
)

func extSet(exts []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, e := range exts {
		if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
			out[e] = struct{}{}
		}
	}
	if len(out) == 0 {
		for _, e := range constants.SupportedMediaTypes {
			out[e] = struct{}{}
		}
	}
	return out
}

func (im *Importer) allowed(path string) bool {
	_, ok := im.exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
