// Package pipeline implements the three event handlers of the ingestion
// pipeline.
//
// - Submitter: starts a text-detection job for every uploaded document
// - Processor: turns a finished job into a PageNo/Text table
// - Annotator: like Processor, plus the annotations embedded in the source PDF
//
// Handlers hold no state between invocations. Their configuration is an
// explicit Config value built once by the trigger adapter, and output keys are
// derived from the job or document name, so a redelivered event overwrites
// the same output object.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/time/rate"

	"github.com/gardar/ocrtable/pkg/extract"
	"github.com/gardar/ocrtable/pkg/storage"
	"github.com/gardar/ocrtable/pkg/table"
)

// ErrNoOutputBucket is returned when a table is ready but no output bucket is configured.
var ErrNoOutputBucket = errors.New("output bucket not configured")

// Config carries the per-deployment settings of the handlers
type Config struct {
	OutputBucket string // Destination bucket for tables and service-side output
	OutputPrefix string // Key prefix inside the output bucket

	NotificationTopic string // Completion topic handed to the text-detection service
	NotificationRole  string // Role the service assumes to publish completions

	MaxPages     int     // Cap on result pages per job, 0 = unlimited
	RetrieveRate float64 // Result retrievals per second, 0 = unlimited

	Format          table.Format // Output format, defaults to CSV
	KeepPageNumbers bool         // Keep pages whose text is only a page number
	SortByPage      bool         // Order rows numerically instead of by first appearance
	RawBlocks       bool         // Processor emits one row per block instead of per page
}

func (c Config) format() table.Format {
	if c.Format == "" {
		return table.FormatCSV
	}
	return c.Format
}

func (c Config) paginator() *extract.Paginator {
	p := &extract.Paginator{
		MaxPages: c.MaxPages,
	}

	if c.RetrieveRate > 0 {
		burst := int(c.RetrieveRate)
		if burst < 1 {
			burst = 1
		}
		p.Limiter = rate.NewLimiter(rate.Limit(c.RetrieveRate), burst)
	}

	return p
}

// Response is the structured result returned to the invoking trigger
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// NewResponse builds a Response whose body is the JSON-encoded message
func NewResponse(status int, message string) Response {
	body, _ := json.Marshal(message)
	return Response{StatusCode: status, Body: string(body)}
}

// OutputName replaces the extension of a document key's base name with the
// extension of the output format.
func OutputName(key string, format table.Format) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base)) + format.Extension()
}

// deliver encodes the table and writes it to the configured output location.
func deliver(ctx context.Context, store storage.Store, cfg Config, name string, t *table.Table) (string, error) {
	if cfg.OutputBucket == "" {
		return "", ErrNoOutputBucket
	}

	if cfg.SortByPage {
		t.SortByPage()
	}

	format := cfg.format()

	var buf bytes.Buffer
	if err := t.Encode(&buf, format); err != nil {
		return "", fmt.Errorf("failed to encode table: %w", err)
	}

	key := storage.Join(cfg.OutputPrefix, name)

	if err := store.Put(ctx, cfg.OutputBucket, key, buf.Bytes(), format.ContentType()); err != nil {
		return "", err
	}

	return key, nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
