package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/gardar/ocrtable/pkg/events"
	"github.com/gardar/ocrtable/pkg/extract"
	"github.com/gardar/ocrtable/pkg/extract/extracttest"
	"github.com/gardar/ocrtable/pkg/pipeline"
	"github.com/gardar/ocrtable/pkg/storage"
	"github.com/gardar/ocrtable/pkg/table"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() pipeline.Config {
	return pipeline.Config{
		OutputBucket:      "results",
		OutputPrefix:      "tables",
		NotificationTopic: "arn:aws:sns:eu-west-1:123:textract",
		NotificationRole:  "arn:aws:iam::123:role/textract",
	}
}

func completion(jobID string, doc extract.Location) events.Completion {
	return events.Completion{JobID: jobID, Status: events.StatusSucceeded, Document: doc}
}

func TestSubmit(t *testing.T) {
	svc := extracttest.New("unused")

	s := &pipeline.Submitter{Config: testConfig(), Service: svc, Logger: discard}

	resp, err := s.Handle(context.Background(), []events.Upload{
		{Document: extract.Location{Bucket: "docs", Key: "in/Annual Report.pdf"}, Version: "etag-1"},
	})

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `"Job created successfully!"`, resp.Body)

	require.Len(t, svc.Submitted, 1)
	req := svc.Submitted[0]

	require.Equal(t, extract.Location{Bucket: "docs", Key: "in/Annual Report.pdf"}, req.Document)
	require.Equal(t, extract.Location{Bucket: "results", Key: "tables"}, req.Output)
	require.Equal(t, extract.Notification{Topic: "arn:aws:sns:eu-west-1:123:textract", Role: "arn:aws:iam::123:role/textract"}, req.Notification)
	require.Equal(t, "Annual_Report", req.Tag)
	require.Equal(t, pipeline.RequestToken(req.Document, "etag-1"), req.Token)
}

func TestSubmitFailure(t *testing.T) {
	svc := extracttest.New("unused")
	svc.SubmitErr = errors.New("throttled")

	s := &pipeline.Submitter{Config: testConfig(), Service: svc, Logger: discard}

	resp, err := s.Handle(context.Background(), []events.Upload{
		{Document: extract.Location{Bucket: "docs", Key: "a.pdf"}},
	})

	require.Error(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, `"Job creation failed!"`, resp.Body)

	_, err = s.Handle(context.Background(), nil)
	require.ErrorIs(t, err, pipeline.ErrNoRecords)
}

func TestRequestToken(t *testing.T) {
	doc := extract.Location{Bucket: "docs", Key: "a.pdf"}

	a := pipeline.RequestToken(doc, "etag-1")
	b := pipeline.RequestToken(doc, "etag-1")
	c := pipeline.RequestToken(extract.Location{Bucket: "docs", Key: "b.pdf"}, "etag-1")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.NotEqual(t, a, pipeline.RequestToken(doc, "etag-2"))
	require.NotEqual(t, a, pipeline.RequestToken(doc, ""))
	require.LessOrEqual(t, len(a), 64)
}

func TestSubmitReupload(t *testing.T) {
	svc := extracttest.New("unused")

	s := &pipeline.Submitter{Config: testConfig(), Service: svc, Logger: discard}

	doc := extract.Location{Bucket: "docs", Key: "docs/report.pdf"}

	for _, u := range []events.Upload{
		{Document: doc, Version: "9b2cf535f27731c974343645a3985328"},
		{Document: doc, Version: "9b2cf535f27731c974343645a3985328"},
		{Document: doc, Version: "1f3870be274f6c49b3e31a0c6728957f"},
	} {
		_, err := s.Submit(context.Background(), u)
		require.NoError(t, err)
	}

	require.Len(t, svc.Submitted, 3)
	require.Equal(t, svc.Submitted[0].Token, svc.Submitted[1].Token)
	require.NotEqual(t, svc.Submitted[0].Token, svc.Submitted[2].Token)
}

func TestJobTag(t *testing.T) {
	require.Equal(t, "report-2024", pipeline.JobTag("in/report-2024.pdf"))
	require.Equal(t, "a_b_c_", pipeline.JobTag("a b(c).pdf"))
	require.Len(t, pipeline.JobTag(string(bytes.Repeat([]byte("x"), 100))+".pdf"), 64)
}

func TestOutputName(t *testing.T) {
	require.Equal(t, "report.csv", pipeline.OutputName("in/report.pdf", table.FormatCSV))
	require.Equal(t, "scan.xlsx", pipeline.OutputName("scan.tiff", table.FormatXLSX))
	require.Equal(t, "noext.csv", pipeline.OutputName("a/b/noext", table.FormatCSV))
}

func TestProcessEndToEnd(t *testing.T) {
	svc := extracttest.New("job-1",
		[]extract.ContentBlock{extracttest.Line(1, "Hello")},
		[]extract.ContentBlock{extracttest.Line(2, "42")},
	)
	store := storage.NewMemory()

	p := &pipeline.Processor{Config: testConfig(), Service: svc, Store: store, Logger: discard}

	resp, err := p.Handle(context.Background(), completion("job-1", extract.Location{}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `"File uploaded successfully!"`, resp.Body)

	data, err := store.Get(context.Background(), "results", "tables/job-1.csv")
	require.NoError(t, err)
	require.Equal(t, "PageNo,Text\n1,Hello\n", string(data))
	require.Equal(t, "text/csv", store.ContentType("results", "tables/job-1.csv"))
	require.Len(t, svc.Calls, 2)
}

func TestProcessIdempotent(t *testing.T) {
	svc := extracttest.New("job-1",
		[]extract.ContentBlock{extracttest.Line(2, "B"), extracttest.Line(1, "A")},
		[]extract.ContentBlock{extracttest.Annotation(3, "Note"), extracttest.Line(2, "C")},
	)
	store := storage.NewMemory()

	p := &pipeline.Processor{Config: testConfig(), Service: svc, Store: store, Logger: discard}

	_, err := p.Handle(context.Background(), completion("job-1", extract.Location{}))
	require.NoError(t, err)

	first, err := store.Get(context.Background(), "results", "tables/job-1.csv")
	require.NoError(t, err)

	_, err = p.Handle(context.Background(), completion("job-1", extract.Location{}))
	require.NoError(t, err)

	second, err := store.Get(context.Background(), "results", "tables/job-1.csv")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, "PageNo,Text\n2,B C\n1,A\n3,Note\n", string(first))
}

func TestProcessOptions(t *testing.T) {
	svc := extracttest.New("job-1",
		[]extract.ContentBlock{extracttest.Line(2, "B"), extracttest.Line(1, "7")},
	)

	cfg := testConfig()
	cfg.KeepPageNumbers = true
	cfg.SortByPage = true

	store := storage.NewMemory()
	p := &pipeline.Processor{Config: cfg, Service: svc, Store: store, Logger: discard}

	_, err := p.Handle(context.Background(), completion("job-1", extract.Location{}))
	require.NoError(t, err)

	data, err := store.Get(context.Background(), "results", "tables/job-1.csv")
	require.NoError(t, err)
	require.Equal(t, "PageNo,Text\n1,7\n2,B\n", string(data))
}

func TestProcessRawBlocks(t *testing.T) {
	svc := extracttest.New("job-1", []extract.ContentBlock{
		{Page: 1, Type: extract.BlockTypePage},
		extracttest.Line(1, "42"),
	})

	cfg := testConfig()
	cfg.RawBlocks = true

	p := &pipeline.Processor{Config: cfg, Service: svc, Logger: discard}

	tab, err := p.Process(context.Background(), "job-1")
	require.NoError(t, err)

	require.True(t, tab.BlockTypes)
	require.Equal(t, []table.Row{
		{Page: 1, BlockType: "PAGE"},
		{Page: 1, BlockType: "LINE", Text: "42"},
	}, tab.Rows)
}

func TestProcessFailures(t *testing.T) {
	svc := extracttest.New("job-1", nil, nil, nil)
	store := storage.NewMemory()

	cfg := testConfig()
	cfg.MaxPages = 2

	p := &pipeline.Processor{Config: cfg, Service: svc, Store: store, Logger: discard}

	resp, err := p.Handle(context.Background(), completion("job-1", extract.Location{}))
	require.ErrorIs(t, err, extract.ErrTooManyPages)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	_, err = p.Handle(context.Background(), completion("missing", extract.Location{}))
	require.ErrorIs(t, err, extract.ErrJobNotFound)

	_, err = p.Handle(context.Background(), events.Completion{JobID: "job-1", Status: events.StatusFailed})
	require.ErrorIs(t, err, extract.ErrJobFailed)

	p.Config = pipeline.Config{}
	_, err = p.Handle(context.Background(), completion("job-1", extract.Location{}))
	require.ErrorIs(t, err, pipeline.ErrNoOutputBucket)

	keys, err := store.List(context.Background(), "results", "")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func testPDF(t *testing.T, pages int) []byte {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)

	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.Cell(40, 10, "page")
	}

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))

	return buf.Bytes()
}

func TestAnnotate(t *testing.T) {
	ctx := context.Background()

	svc := extracttest.New("job-1",
		[]extract.ContentBlock{extracttest.Line(1, "Hello"), extracttest.Annotation(1, "ignored")},
		[]extract.ContentBlock{extracttest.Line(2, "World"), extracttest.Line(3, "3")},
	)

	docs := storage.NewMemory()
	require.NoError(t, docs.Put(ctx, "docs", "in/report.pdf", testPDF(t, 3), "application/pdf"))

	out := storage.NewMemory()

	a := &pipeline.Annotator{Config: testConfig(), Service: svc, Documents: docs, Store: out, Logger: discard}

	resp, err := a.Handle(ctx, completion("job-1", extract.Location{Bucket: "docs", Key: "in/report.pdf"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `"File uploaded and PDF annotations processed successfully!"`, resp.Body)

	data, err := out.Get(ctx, "results", "tables/report.csv")
	require.NoError(t, err)
	require.Equal(t, "PageNo,Text,Annotation\n1,Hello,No annotations.\n2,World,No annotations.\n", string(data))
}

func TestAnnotateMissingDocument(t *testing.T) {
	svc := extracttest.New("job-1", []extract.ContentBlock{extracttest.Line(1, "Hello")})
	store := storage.NewMemory()

	a := &pipeline.Annotator{Config: testConfig(), Service: svc, Store: store, Logger: discard}

	tab, err := a.Annotate(context.Background(), "job-1", extract.Location{Bucket: "docs", Key: "gone.pdf"})
	require.NoError(t, err)

	require.True(t, tab.Annotations)
	require.Equal(t, []table.Row{{Page: 1, Text: "Hello"}}, tab.Rows)
}

func TestAnnotateCorruptDocument(t *testing.T) {
	ctx := context.Background()

	svc := extracttest.New("job-1", []extract.ContentBlock{extracttest.Line(1, "Hello")})
	store := storage.NewMemory()
	require.NoError(t, store.Put(ctx, "docs", "bad.pdf", []byte("garbage"), ""))

	a := &pipeline.Annotator{Config: testConfig(), Service: svc, Store: store, Logger: discard}

	_, err := a.Handle(ctx, completion("job-1", extract.Location{Bucket: "docs", Key: "bad.pdf"}))
	require.NoError(t, err)

	data, err := store.Get(ctx, "results", "tables/bad.csv")
	require.NoError(t, err)
	require.Equal(t, "PageNo,Text,Annotation\n1,Hello,\n", string(data))
}
