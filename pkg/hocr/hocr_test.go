package hocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/gardar/ocrtable/pkg/extract"
	"github.com/gardar/ocrtable/pkg/storage"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
 <head>
  <title>scan</title>
  <meta http-equiv="Content-Type" content="text/html;charset=utf-8"/>
  <meta name="ocr-system" content="tesseract 5.3.0"/>
 </head>
 <body>
  <div class="ocr_page" id="page_1" title='image "scan.png"; bbox 0 0 2480 3508; ppageno 0'>
   <div class="ocr_carea" id="block_1_1" title="bbox 100 100 900 300">
    <p class="ocr_par" id="par_1_1">
     <span class="ocr_line" id="line_1_1" title="bbox 100 100 900 150">
      <span class="ocrx_word" id="word_1_1" title="bbox 100 100 300 150; x_wconf 96">Annual</span>
      <span class="ocrx_word" id="word_1_2" title="bbox 320 100 600 150; x_wconf 95"><strong>Report</strong></span>
     </span>
     <span class="ocr_header" id="line_1_2">
      <span class="ocrx_word" id="word_1_3">Summary</span>
     </span>
    </p>
   </div>
  </div>
  <div class="ocr_page" id="page_2" title="bbox 0 0 2480 3508; ppageno 1">
   <span class="ocr_line" id="line_2_1">
    <span class="ocrx_word" id="word_2_1">2</span>
   </span>
  </div>
  <div class="ocr_page" id="page_3">
   <span class="ocr_line" id="line_3_1">plain   text line</span>
  </div>
 </body>
</html>`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Equal(t, "scan", doc.Title)
	require.Equal(t, "en", doc.Language)
	require.Equal(t, "tesseract 5.3.0", doc.Metadata["ocr-system"])

	require.Len(t, doc.Pages, 3)

	require.Equal(t, 1, doc.Pages[0].Number)
	require.Equal(t, "scan.png", doc.Pages[0].Image)
	require.Equal(t, []Line{
		{ID: "line_1_1", Words: []string{"Annual", "Report"}},
		{ID: "line_1_2", Words: []string{"Summary"}},
	}, doc.Pages[0].Lines)

	require.Equal(t, 2, doc.Pages[1].Number)
	require.Equal(t, "2", doc.Pages[1].Lines[0].Text())

	require.Equal(t, 3, doc.Pages[2].Number)
	require.Equal(t, "plain text line", doc.Pages[2].Lines[0].Text())
}

func TestParseLatin1(t *testing.T) {
	src := `<html><head><meta http-equiv="Content-Type" content="text/html; charset=ISO-8859-1"></head>
<body><div class="ocr_page"><span class="ocr_line"><span class="ocrx_word">Straße</span></span></div></body></html>`

	data, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(src))
	require.NoError(t, err)

	doc, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, "Straße", doc.Pages[0].Lines[0].Text())
}

func TestParseNoPages(t *testing.T) {
	_, err := Parse([]byte("<html><body><p>nothing</p></body></html>"))
	require.ErrorIs(t, err, ErrNoPages)
}

func TestParseTitle(t *testing.T) {
	props := ParseTitle("bbox 100 200 300 400; x_wconf 95;")

	require.Equal(t, []string{"100", "200", "300", "400"}, props["bbox"])
	require.Equal(t, []string{"95"}, props["x_wconf"])
	require.Len(t, props, 2)
}

func TestSidecar(t *testing.T) {
	require.Equal(t, extract.Location{Bucket: "b", Key: "in/scan.hocr"}, Sidecar(extract.Location{Bucket: "b", Key: "in/scan.pdf"}))
	require.Equal(t, extract.Location{Bucket: "b", Key: "in/scan.html"}, Sidecar(extract.Location{Bucket: "b", Key: "in/scan.html"}))
}

func TestService(t *testing.T) {
	ctx := context.Background()

	store := storage.NewMemory()
	require.NoError(t, store.Put(ctx, "docs", "in/scan.hocr", []byte(sample), "text/html"))

	svc := NewService(store, 2)

	jobID, err := svc.Submit(ctx, extract.SubmitRequest{
		Document: extract.Location{Bucket: "docs", Key: "in/scan.pdf"},
	})
	require.NoError(t, err)
	require.Equal(t, "docs/in/scan.hocr", jobID)

	pages, err := extract.FetchAllPages(ctx, svc, jobID)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	require.Equal(t, []extract.ContentBlock{
		{Page: 1, Type: extract.BlockTypePage},
		{Page: 1, Type: extract.BlockTypeLine, Text: "Annual Report"},
		{Page: 1, Type: extract.BlockTypeLine, Text: "Summary"},
		{Page: 2, Type: extract.BlockTypePage},
		{Page: 2, Type: extract.BlockTypeLine, Text: "2"},
	}, pages[0].Blocks)
	require.Equal(t, "2", pages[0].NextToken)

	require.Equal(t, []extract.ContentBlock{
		{Page: 3, Type: extract.BlockTypePage},
		{Page: 3, Type: extract.BlockTypeLine, Text: "plain text line"},
	}, pages[1].Blocks)
	require.Empty(t, pages[1].NextToken)
}

func TestServiceErrors(t *testing.T) {
	ctx := context.Background()

	store := storage.NewMemory()
	require.NoError(t, store.Put(ctx, "docs", "bad.hocr", []byte("<html></html>"), ""))

	svc := NewService(store, 0)

	_, err := svc.Submit(ctx, extract.SubmitRequest{Document: extract.Location{Bucket: "docs", Key: "missing.pdf"}})
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Retrieve(ctx, "docs/missing.hocr", "")
	require.ErrorIs(t, err, extract.ErrJobNotFound)

	_, err = svc.Retrieve(ctx, "docs/bad.hocr", "")
	require.ErrorIs(t, err, extract.ErrJobFailed)

	_, err = svc.Retrieve(ctx, "nobucket", "")
	require.ErrorIs(t, err, extract.ErrJobNotFound)
}
