package pdfextract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// Page is the plain text of one 1-based PDF page.
type Page struct {
	Number int
	Text   string
}

// ExtractPages reads the entire content of r and returns the text of every
// page in order. Pages without extractable text are returned with empty Text.
// The pdf parser panics on malformed object syntax; that is returned as an
// error.
func ExtractPages(r io.Reader) (pages []Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("parse pdf failed: %v", rec)
		}
	}()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}

	n := pdfReader.NumPage()
	pages = make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		p := pdfReader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d failed: %w", i, err)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
