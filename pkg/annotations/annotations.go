// Package annotations reads the annotation objects embedded in a PDF document,
// independently of any OCR output.
//
// Extraction is fail-soft: problems with a single page turn into sentinel text
// for that page, and a document that cannot be opened at all yields a single
// diagnostic entry for page 0. Callers never receive an error, so annotation
// problems cannot block delivery of the extracted text.
package annotations

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Sentinel annotation texts
const (
	NoAnnotations    = "No annotations."
	ErrorAnnotations = "Error processing annotations."
)

// Annotation is the text of one annotation on a page. Page 0 is reserved for
// document-level diagnostics.
type Annotation struct {
	Page int
	Text string
}

// Diagnostic returns the single page-0 entry reported when the document at
// bucket/key could not be read.
func Diagnostic(bucket, key string, err error) []Annotation {
	return []Annotation{{
		Page: 0,
		Text: fmt.Sprintf("Error reading key %s from bucket %s: %v", key, bucket, err),
	}}
}

// Extract returns the annotations of every page of a PDF in page order.
//
// For each page (1-based):
// - no /Annots entry yields NoAnnotations
// - an /Annots entry without any readable /Contents string yields ErrorAnnotations
// - otherwise every readable /Contents string is returned as its own entry
func Extract(data []byte) (result []Annotation) {
	defer func() {
		if r := recover(); r != nil {
			result = []Annotation{{
				Page: 0,
				Text: fmt.Sprintf("Error reading document: %v", r),
			}}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return []Annotation{{
			Page: 0,
			Text: fmt.Sprintf("Error reading document: %v", err),
		}}
	}

	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		result = append(result, pageAnnotations(reader, i)...)
	}

	return result
}

// pageAnnotations extracts the annotations of a single page. Malformed page
// objects make the reader panic; that is contained to the page and the
// annotations read before the panic are kept.
func pageAnnotations(reader *pdf.Reader, num int) (result []Annotation) {
	defer func() {
		if r := recover(); r != nil {
			result = append(result, Annotation{Page: num, Text: ErrorAnnotations})
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return []Annotation{{Page: num, Text: ErrorAnnotations}}
	}

	annots := page.V.Key("Annots")
	if annots.IsNull() {
		return []Annotation{{Page: num, Text: NoAnnotations}}
	}

	if annots.Kind() != pdf.Array {
		return []Annotation{{Page: num, Text: ErrorAnnotations}}
	}

	if annots.Len() == 0 {
		return []Annotation{{Page: num, Text: NoAnnotations}}
	}

	for i := 0; i < annots.Len(); i++ {
		contents := annots.Index(i).Key("Contents")
		if contents.Kind() != pdf.String {
			continue
		}

		result = append(result, Annotation{
			Page: num,
			Text: contents.Text(),
		})
	}

	if len(result) == 0 {
		return []Annotation{{Page: num, Text: ErrorAnnotations}}
	}

	return result
}
