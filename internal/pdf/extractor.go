// Package pdf extracts per-page plain text from PDF files.
package pdf

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"pdfchat-ai/internal/segmenter"
)

// ExtractPages reads the PDF at path and returns one Page per physical
// page, in order. Pages whose text cannot be decoded come back with
// empty text so page numbering stays aligned with the document.
func ExtractPages(path string) ([]segmenter.Page, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	totalPages := reader.NumPage()
	if totalPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages := make([]segmenter.Page, 0, totalPages)
	for i := 1; i <= totalPages; i++ {
		pages = append(pages, segmenter.Page{
			Number: i,
			Text:   pageText(reader, i),
		})
	}
	return pages, nil
}

// pageText decodes a single page. Malformed content streams can make
// the decoder panic, so recover and treat the page as unreadable.
func pageText(reader *pdf.Reader, number int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	page := reader.Page(number)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}
