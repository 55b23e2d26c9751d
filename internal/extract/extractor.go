// Package extract converts resume documents to normalized plain text.
package extract

import (
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
)

type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract dispatches on the declared media type. Generic or missing types are
// resolved by content sniffing; file names are never consulted.
func (e *Extractor) Extract(data []byte, mediaType string) (res Result, err error) {
	start := time.Now()
	mt := ResolveMediaType(data, mediaType)
	e.logger.Debug("extract.start", zap.String("declared", mediaType), zap.String("media_type", mt), zap.Int("bytes", len(data)))

	// Third-party decoders panic on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extract.decoder_panic", zap.String("media_type", mt), zap.Any("panic", r))
			res = Result{MediaType: mt}
			err = common.KindError(constants.ErrKindExtractionFailed, "decode "+mt, fmt.Errorf("decoder panic: %v", r))
		}
	}()

	switch mt {
	case constants.MediaTypePDF:
		res, err = extractPDF(data)
	case constants.MediaTypeDOCX:
		res, err = extractDOCX(data)
	case constants.MediaTypeText:
		res, err = extractPlain(data)
	default:
		e.logger.Warn("extract.unsupported", zap.String("media_type", mt))
		return Result{MediaType: mt}, common.KindError(constants.ErrKindUnsupportedMediaType, fmt.Sprintf("unsupported media type %q", mt), nil)
	}
	res.MediaType = mt
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Warn("extract.failed", zap.String("media_type", mt), zap.Error(err))
		return res, common.KindError(constants.ErrKindExtractionFailed, "decode "+mt, err)
	}
	res.Text = Normalize(res.Text)
	e.logger.Debug("extract.ok",
		zap.String("method", res.Method),
		zap.Int("pages", res.Pages),
		zap.Int("chars", len(res.Text)),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func extractPlain(data []byte) (Result, error) {
	if !utf8.Valid(data) {
		return Result{}, fmt.Errorf("text is not valid utf-8")
	}
	return Result{Text: string(data), Pages: 1, Method: "plain"}, nil
}
