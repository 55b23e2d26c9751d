package extract

import "time"

// TextExtractor turns a document blob into plain text. Implementations do no
// I/O beyond reading the given bytes.
type TextExtractor interface {
	Extract(data []byte, mediaType string) (Result, error)
}

type Result struct {
	Text      string
	Pages     int
	MediaType string // resolved media type
	Method    string // "pdf-text" | "docx-xml" | "plain"
	Duration  time.Duration
	Warnings  []string
}
