package pagetext

import (
	"github.com/gardar/ocrtable/pkg/annotations"
	"github.com/gardar/ocrtable/pkg/table"
)

// Merge folds annotation text into page text. Annotation text is appended to
// a page that already has text and otherwise becomes the page's sole text.
// Neither input is modified.
func Merge(text, notes *Map) *Map {
	merged := text.Clone()
	notes.Each(merged.Append)
	return merged
}

// Combine builds one table row per page of text, in the map's order, with the
// native document annotations for that page in the separate annotation column.
// Several annotations on one page are joined with a space; pages without
// annotations get an empty annotation. Annotations for pages without text are
// not emitted.
func Combine(text *Map, native []annotations.Annotation) []table.Row {
	byPage := NewMap()
	for _, a := range native {
		byPage.Append(a.Page, a.Text)
	}

	rows := make([]table.Row, 0, text.Len())
	text.Each(func(page int, t string) {
		annotation, _ := byPage.Get(page)
		rows = append(rows, table.Row{
			Page:       page,
			Text:       t,
			Annotation: annotation,
		})
	})

	return rows
}

// Rows converts a map into table rows without annotations
func Rows(text *Map) []table.Row {
	rows := make([]table.Row, 0, text.Len())
	text.Each(func(page int, t string) {
		rows = append(rows, table.Row{
			Page: page,
			Text: t,
		})
	})
	return rows
}
