package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gardar/ocrtable/pkg/annotations"
	"github.com/gardar/ocrtable/pkg/events"
	"github.com/gardar/ocrtable/pkg/extract"
	"github.com/gardar/ocrtable/pkg/pagetext"
	"github.com/gardar/ocrtable/pkg/storage"
	"github.com/gardar/ocrtable/pkg/table"
)

// Annotator builds a PageNo/Text/Annotation table from a finished job and the
// annotations embedded in its source document.
type Annotator struct {
	Config  Config
	Service extract.Service

	// Documents holds the source documents; Store receives the tables.
	// Documents defaults to Store.
	Documents storage.Store
	Store     storage.Store

	Logger *slog.Logger
}

// Handle writes the table to <prefix>/<document base name>.<ext>. Problems
// reading the source document only degrade the annotation column.
func (a *Annotator) Handle(ctx context.Context, c events.Completion) (Response, error) {
	logger := loggerOrDefault(a.Logger).With("job_id", c.JobID)

	if !c.Succeeded() {
		logger.Error("job did not succeed", "status", c.Status)
		return NewResponse(http.StatusInternalServerError, "Job failed!"), fmt.Errorf("job %s: %w (status %s)", c.JobID, extract.ErrJobFailed, c.Status)
	}

	t, err := a.Annotate(ctx, c.JobID, c.Document)
	if err != nil {
		return NewResponse(http.StatusInternalServerError, "Processing failed!"), err
	}

	name := OutputName(c.Document.Key, a.Config.format())
	if c.Document.Key == "" {
		name = c.JobID + a.Config.format().Extension()
	}

	key, err := deliver(ctx, a.Store, a.Config, name, t)
	if err != nil {
		return NewResponse(http.StatusInternalServerError, "Upload failed!"), err
	}

	logger.Info("table uploaded", "bucket", a.Config.OutputBucket, "key", key, "rows", len(t.Rows))

	return NewResponse(http.StatusOK, "File uploaded and PDF annotations processed successfully!"), nil
}

// Annotate reconciles the job's text and pairs each page with the native
// annotations of the document at doc.
func (a *Annotator) Annotate(ctx context.Context, jobID string, doc extract.Location) (*table.Table, error) {
	logger := loggerOrDefault(a.Logger).With("job_id", jobID)

	pages, err := a.Config.paginator().FetchAll(ctx, a.Service, jobID)
	if err != nil {
		return nil, err
	}

	text, _ := pagetext.Reconcile(pages)

	if !a.Config.KeepPageNumbers {
		pagetext.DropPageNumbers(text)
	}

	native := a.nativeAnnotations(ctx, doc)

	for _, n := range native {
		if n.Page == 0 {
			logger.Warn("annotations unavailable", "bucket", doc.Bucket, "key", doc.Key, "reason", n.Text)
			continue
		}
		logger.Info("annotation", "page", n.Page, "annotation", n.Text)
	}

	return &table.Table{
		Annotations: true,
		Rows:        pagetext.Combine(text, native),
	}, nil
}

func (a *Annotator) nativeAnnotations(ctx context.Context, doc extract.Location) []annotations.Annotation {
	store := a.Documents
	if store == nil {
		store = a.Store
	}

	if store == nil || doc.Key == "" {
		return annotations.Diagnostic(doc.Bucket, doc.Key, errors.New("no document location"))
	}

	data, err := store.Get(ctx, doc.Bucket, doc.Key)
	if err != nil {
		return annotations.Diagnostic(doc.Bucket, doc.Key, err)
	}

	return annotations.Extract(data)
}
