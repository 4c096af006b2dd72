package hocr

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ErrNoPages is returned for hOCR documents without any ocr_page element.
var ErrNoPages = errors.New("no ocr_page elements found in hOCR data")

var lineClasses = []string{"ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat"}

// Parse converts raw hOCR data into a Document. Data declared as ISO-8859-1
// or Windows-1252 is decoded to UTF-8 first.
func Parse(data []byte) (*Document, error) {
	decoded, err := decode(data)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Metadata: make(map[string]string),
	}

	walk(root, func(n *html.Node) bool {
		switch {
		case n.Data == "html":
			if lang := getAttrVal(n, "lang"); lang != "" {
				doc.Language = lang
			}
		case n.Data == "title":
			doc.Title = textContent(n)
			return false
		case n.Data == "meta":
			name, content := getAttrVal(n, "name"), getAttrVal(n, "content")
			if strings.HasPrefix(name, "ocr-") && content != "" {
				doc.Metadata[name] = content
			}
		case hasClass(n, "ocr_page"):
			doc.Pages = append(doc.Pages, parsePage(n, len(doc.Pages)+1))
			return false
		}
		return true
	})

	if len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}

	return doc, nil
}

// ParseTitle breaks down an hOCR title attribute into its components
// Example input: "bbox 100 200 300 400; x_wconf 95"
func ParseTitle(title string) map[string][]string {
	result := make(map[string][]string)

	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}

	return result
}

// parsePage reads the lines of an ocr_page element. The page number comes
// from the 0-based 'ppageno' property and falls back to the page's position.
func parsePage(n *html.Node, position int) Page {
	page := Page{
		ID:     getAttrVal(n, "id"),
		Number: position,
	}

	props := ParseTitle(getAttrVal(n, "title"))

	if image, ok := props["image"]; ok && len(image) > 0 {
		page.Image = strings.Trim(image[0], `"`)
	}
	if ppageno, ok := props["ppageno"]; ok && len(ppageno) > 0 {
		if num, err := strconv.Atoi(ppageno[0]); err == nil && num >= 0 {
			page.Number = num + 1
		}
	}

	walk(n, func(c *html.Node) bool {
		if c == n {
			return true
		}

		for _, class := range lineClasses {
			if hasClass(c, class) {
				if line := parseLine(c); len(line.Words) > 0 {
					page.Lines = append(page.Lines, line)
				}
				return false
			}
		}
		return true
	})

	return page
}

// parseLine collects the words of a line. Lines without word elements use
// their whitespace-separated text instead.
func parseLine(n *html.Node) Line {
	line := Line{
		ID: getAttrVal(n, "id"),
	}

	walk(n, func(c *html.Node) bool {
		if hasClass(c, "ocrx_word") {
			if text := textContent(c); text != "" {
				line.Words = append(line.Words, text)
			}
			return false
		}
		return true
	})

	if len(line.Words) == 0 {
		line.Words = strings.Fields(textContent(n))
	}

	return line
}

// walk visits element nodes depth first. Children are skipped when fn
// returns false.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if n.Type == html.ElementNode && !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// textContent gets all text from a node and its children
func textContent(n *html.Node) string {
	var b strings.Builder

	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	return strings.Join(strings.Fields(b.String()), " ")
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Get the value of a specific attribute from a node
func getAttrVal(n *html.Node, attrName string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrName {
			return attr.Val
		}
	}
	return ""
}

// decode converts single-byte encoded documents to UTF-8 based on the
// charset declared in the document head.
func decode(data []byte) ([]byte, error) {
	var enc encoding.Encoding

	switch charset(data) {
	case "iso-8859-1", "latin1", "latin-1":
		enc = charmap.ISO8859_1
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	case "iso-8859-15":
		enc = charmap.ISO8859_15
	default:
		return data, nil
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", charset(data), err)
	}

	return decoded, nil
}

// charset returns the lowercased charset declared in a meta tag
func charset(data []byte) string {
	lower := bytes.ToLower(data)

	i := bytes.Index(lower, []byte("charset="))
	if i < 0 {
		return "utf-8"
	}

	rest := lower[i+len("charset="):]
	rest = bytes.TrimLeft(rest, `"'`)

	end := bytes.IndexAny(rest, "\"'; >/\r\n\t")
	if end >= 0 {
		rest = rest[:end]
	}

	if len(rest) == 0 {
		return "utf-8"
	}

	return string(rest)
}
