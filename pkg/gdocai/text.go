package gdocai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/gardar/ocrtable/pkg/extract"
)

// blocksFromDocument converts the lines of each page into LINE blocks and
// each detected form field into an ANNOTATION block "name: value". Form
// fields whose text is already part of the page's lines are skipped.
func blocksFromDocument(doc *documentaipb.Document) []extract.ContentBlock {
	var blocks []extract.ContentBlock

	text := doc.GetText()

	for i, page := range doc.GetPages() {
		pageNum := int(page.GetPageNumber())
		if pageNum <= 0 {
			pageNum = i + 1
		}

		var lineSegments []*documentaipb.Document_TextAnchor_TextSegment

		for _, line := range page.GetLines() {
			lineSegments = append(lineSegments, line.GetLayout().GetTextAnchor().GetTextSegments()...)

			blocks = append(blocks, extract.ContentBlock{
				Page: pageNum,
				Type: extract.BlockTypeLine,
				Text: strings.TrimSpace(textFromLayout(line.GetLayout(), text)),
			})
		}

		for _, field := range page.GetFormFields() {
			if covered(field.GetFieldName(), lineSegments) && covered(field.GetFieldValue(), lineSegments) {
				continue
			}

			name := strings.TrimSpace(textFromLayout(field.GetFieldName(), text))
			name = strings.TrimSuffix(name, ":")
			value := strings.TrimSpace(textFromLayout(field.GetFieldValue(), text))

			if name == "" {
				continue
			}

			blocks = append(blocks, extract.ContentBlock{
				Page: pageNum,
				Type: extract.BlockTypeAnnotation,
				Text: name + ": " + value,
			})
		}
	}

	return blocks
}

// covered reports whether every text segment of the layout lies inside one of
// the given segments
func covered(layout *documentaipb.Document_Page_Layout, segments []*documentaipb.Document_TextAnchor_TextSegment) bool {
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		inside := false
		for _, s := range segments {
			if seg.GetStartIndex() >= s.GetStartIndex() && seg.GetEndIndex() <= s.GetEndIndex() {
				inside = true
				break
			}
		}
		if !inside {
			return false
		}
	}
	return true
}

// textFromLayout extracts text from a layout's text anchor segments
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.TextAnchor == nil {
		return ""
	}
	runes := []rune(fullText)
	result := strings.Builder{}
	totalRunes := len(runes)

	for _, seg := range layout.TextAnchor.TextSegments {
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > totalRunes {
			end = totalRunes
		}
		if start > end {
			start = end
		}
		result.WriteString(string(runes[start:end]))
	}
	return result.String()
}
