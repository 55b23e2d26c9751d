package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

func extractPDF(data []byte) (Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	pages := r.NumPage()
	plain, err := r.GetPlainText()
	if err != nil {
		return Result{}, fmt.Errorf("read pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return Result{}, fmt.Errorf("read pdf text: %w", err)
	}
	res := Result{Text: string(b), Pages: pages, Method: "pdf-text"}
	if len(bytes.TrimSpace(b)) == 0 && pages > 0 {
		res.Warnings = append(res.Warnings, "pdf has no text layer")
	}
	return res, nil
}
