package pagetext

import (
	"strings"
	"unicode"

	"github.com/gardar/ocrtable/pkg/extract"
)

// Reconcile walks the blocks of all result pages in page-then-block order and
// groups their text by source page. LINE blocks accumulate into text,
// ANNOTATION blocks into annotations; every other block type is ignored.
func Reconcile(pages []extract.ResultPage) (text *Map, annotations *Map) {
	text = NewMap()
	annotations = NewMap()

	for _, page := range pages {
		for _, block := range page.Blocks {
			switch block.Type {
			case extract.BlockTypeLine:
				text.Append(block.Page, block.Text)
			case extract.BlockTypeAnnotation:
				annotations.Append(block.Page, block.Text)
			}
		}
	}

	return text, annotations
}

// DropPageNumbers removes pages whose trimmed text consists solely of decimal
// digits. Such pages only carry a printed page-number footer.
func DropPageNumbers(m *Map) {
	m.Filter(func(_ int, text string) bool {
		return !isPageNumber(text)
	})
}

func isPageNumber(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	for _, r := range text {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
