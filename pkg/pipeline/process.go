package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gardar/ocrtable/pkg/events"
	"github.com/gardar/ocrtable/pkg/extract"
	"github.com/gardar/ocrtable/pkg/pagetext"
	"github.com/gardar/ocrtable/pkg/storage"
	"github.com/gardar/ocrtable/pkg/table"
)

// Processor turns the results of a finished job into a per-page text table
type Processor struct {
	Config  Config
	Service extract.Service
	Store   storage.Store
	Logger  *slog.Logger
}

// Handle builds the table for a completed job and writes it to
// <prefix>/<job id>.<ext>. Retrieval and storage failures are returned so the
// trigger can redeliver.
func (p *Processor) Handle(ctx context.Context, c events.Completion) (Response, error) {
	logger := loggerOrDefault(p.Logger).With("job_id", c.JobID)

	if !c.Succeeded() {
		logger.Error("job did not succeed", "status", c.Status)
		return NewResponse(http.StatusInternalServerError, "Job failed!"), fmt.Errorf("job %s: %w (status %s)", c.JobID, extract.ErrJobFailed, c.Status)
	}

	t, err := p.Process(ctx, c.JobID)
	if err != nil {
		return NewResponse(http.StatusInternalServerError, "Processing failed!"), err
	}

	key, err := deliver(ctx, p.Store, p.Config, c.JobID+p.Config.format().Extension(), t)
	if err != nil {
		return NewResponse(http.StatusInternalServerError, "Upload failed!"), err
	}

	logger.Info("table uploaded", "bucket", p.Config.OutputBucket, "key", key, "rows", len(t.Rows))

	return NewResponse(http.StatusOK, "File uploaded successfully!"), nil
}

// Process retrieves every result page of a job and reconciles the blocks into
// a table. Annotation blocks are folded into the page text.
func (p *Processor) Process(ctx context.Context, jobID string) (*table.Table, error) {
	pages, err := p.Config.paginator().FetchAll(ctx, p.Service, jobID)
	if err != nil {
		return nil, err
	}

	if p.Config.RawBlocks {
		return blockTable(pages), nil
	}

	text, notes := pagetext.Reconcile(pages)

	if !p.Config.KeepPageNumbers {
		pagetext.DropPageNumbers(text)
	}

	merged := pagetext.Merge(text, notes)

	return &table.Table{
		Rows: pagetext.Rows(merged),
	}, nil
}

// blockTable lists every block of every result page, unfiltered
func blockTable(pages []extract.ResultPage) *table.Table {
	t := &table.Table{
		BlockTypes: true,
	}

	for _, page := range pages {
		for _, block := range page.Blocks {
			t.Rows = append(t.Rows, table.Row{
				Page:      block.Page,
				BlockType: string(block.Type),
				Text:      block.Text,
			})
		}
	}

	return t
}
