package hocr

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/gardar/ocrtable/pkg/extract"
	"github.com/gardar/ocrtable/pkg/storage"
)

var _ extract.Service = (*Service)(nil)

// Service serves hOCR sidecar files as text-detection jobs. Submitting a
// document resolves its sidecar (the document key with a .hocr extension)
// and the job ID is the sidecar location "bucket/key". Nothing is recognized;
// the sidecar must already exist.
type Service struct {
	store          storage.Store
	pagesPerResult int
}

// NewService creates a Service reading sidecars from store. Each result page
// carries pagesPerResult hOCR pages; values below 1 mean one.
func NewService(store storage.Store, pagesPerResult int) *Service {
	if pagesPerResult < 1 {
		pagesPerResult = 1
	}

	return &Service{
		store:          store,
		pagesPerResult: pagesPerResult,
	}
}

// Sidecar returns the location of the hOCR file for a document. hOCR and
// HTML documents are their own sidecar.
func Sidecar(doc extract.Location) extract.Location {
	switch strings.ToLower(path.Ext(doc.Key)) {
	case ".hocr", ".html", ".htm":
		return doc
	}

	return extract.Location{
		Bucket: doc.Bucket,
		Key:    strings.TrimSuffix(doc.Key, path.Ext(doc.Key)) + ".hocr",
	}
}

func (s *Service) Submit(ctx context.Context, req extract.SubmitRequest) (string, error) {
	sidecar := Sidecar(req.Document)

	if _, err := s.store.Get(ctx, sidecar.Bucket, sidecar.Key); err != nil {
		return "", fmt.Errorf("no hOCR sidecar for %s: %w", req.Document, err)
	}

	return sidecar.String(), nil
}

func (s *Service) Retrieve(ctx context.Context, jobID string, token string) (*extract.ResultPage, error) {
	bucket, key, ok := strings.Cut(jobID, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: %s", extract.ErrJobNotFound, jobID)
	}

	data, err := s.store.Get(ctx, bucket, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", extract.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", extract.ErrJobFailed, jobID, err)
	}

	start := 0
	if token != "" {
		start, err = strconv.Atoi(token)
		if err != nil || start < 0 || start >= len(doc.Pages) {
			return nil, fmt.Errorf("invalid continuation token %q", token)
		}
	}

	end := min(start+s.pagesPerResult, len(doc.Pages))

	result := &extract.ResultPage{}

	for _, page := range doc.Pages[start:end] {
		result.Blocks = append(result.Blocks, extract.ContentBlock{
			Page: page.Number,
			Type: extract.BlockTypePage,
		})

		for _, line := range page.Lines {
			result.Blocks = append(result.Blocks, extract.ContentBlock{
				Page: page.Number,
				Type: extract.BlockTypeLine,
				Text: line.Text(),
			})
		}
	}

	if end < len(doc.Pages) {
		result.NextToken = strconv.Itoa(end)
	}

	return result, nil
}
