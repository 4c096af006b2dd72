// Package hocr reads hOCR files, the HTML-based format OCR engines such as
// Tesseract emit, and serves them as text-detection results.
//
// Only the text hierarchy is kept: pages (class 'ocr_page') and their lines
// (class 'ocr_line' and the typographic line variants), each line being the
// space-joined text of its words (class 'ocrx_word').
//
// Main Functions:
//
// - Parse: Parses hOCR data into pages of lines
// - ParseTitle: Splits an hOCR title attribute into its properties
// - NewService: Serves hOCR sidecar files through extract.Service
package hocr

import "strings"

// Document is a parsed hOCR file
type Document struct {
	Title    string            // Document title
	Language string            // Document language
	Metadata map[string]string // ocr-system, ocr-capabilities and similar meta tags
	Pages    []Page            // Pages in document order
}

// Page is one page of recognized text
// Corresponds to hOCR element with class: 'ocr_page'
type Page struct {
	ID     string // Unique identifier
	Number int    // 1-based page number
	Image  string // Source image filename
	Lines  []Line // Lines in reading order
}

// Line is a line of recognized text
// Corresponds to hOCR elements with class: 'ocr_line', 'ocr_header', 'ocr_caption', 'ocr_textfloat'
type Line struct {
	ID    string   // Unique identifier
	Words []string // Word texts in reading order
}

// Text joins the line's words with single spaces
func (l Line) Text() string {
	return strings.Join(l.Words, " ")
}
