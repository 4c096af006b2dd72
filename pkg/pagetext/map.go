// Package pagetext reconciles extracted content blocks into per-page text.
//
// Blocks from every result page of a job are folded into insertion-ordered
// page -> text maps: one for primary text lines and one for annotation blocks.
// The maps can then be filtered for running page-number footers, merged, and
// combined with annotations read from the original document.
//
// Main Functions:
//
// - Reconcile: Groups LINE and ANNOTATION blocks by page
// - DropPageNumbers: Removes pages whose text is only a printed page number
// - Merge: Appends annotation text onto page text
// - Combine: Pairs page text with native document annotations as table rows
package pagetext

import (
	"strconv"
	"strings"
)

// Map is a page -> text mapping that remembers the order in which pages were
// first seen. Iteration follows that order, not numeric page order.
type Map struct {
	order []int
	text  map[int]string
}

// NewMap returns an empty Map
func NewMap() *Map {
	return &Map{
		text: make(map[int]string),
	}
}

// Append adds text to a page. If the page already has text the new text is
// joined with a single space, otherwise it becomes the page's text.
func (m *Map) Append(page int, text string) {
	if existing, ok := m.text[page]; ok {
		m.text[page] = existing + " " + text
		return
	}

	m.order = append(m.order, page)
	m.text[page] = text
}

// Get returns the text of a page and whether the page is present
func (m *Map) Get(page int) (string, bool) {
	text, ok := m.text[page]
	return text, ok
}

// Delete removes a page, keeping the order of the remaining pages
func (m *Map) Delete(page int) {
	if _, ok := m.text[page]; !ok {
		return
	}
	delete(m.text, page)

	for i, p := range m.order {
		if p == page {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Filter keeps only the pages for which keep returns true, preserving their
// order. The order is rebuilt in a single pass.
func (m *Map) Filter(keep func(page int, text string) bool) {
	kept := m.order[:0]
	for _, page := range m.order {
		if keep(page, m.text[page]) {
			kept = append(kept, page)
			continue
		}
		delete(m.text, page)
	}
	m.order = kept
}

// Len returns the number of pages
func (m *Map) Len() int {
	return len(m.order)
}

// Pages returns page numbers in first-insertion order
func (m *Map) Pages() []int {
	return append([]int(nil), m.order...)
}

// Each calls fn for every page in first-insertion order
func (m *Map) Each(fn func(page int, text string)) {
	for _, page := range m.order {
		fn(page, m.text[page])
	}
}

// Clone returns an independent copy
func (m *Map) Clone() *Map {
	c := NewMap()
	m.Each(c.Append)
	return c
}

// String renders the map as "page: text" lines, mainly for logs and debugging
func (m *Map) String() string {
	var b strings.Builder
	m.Each(func(page int, text string) {
		b.WriteString(strconv.Itoa(page))
		b.WriteString(": ")
		b.WriteString(text)
		b.WriteString("\n")
	})
	return b.String()
}
