// Package gdocai runs text detection on Google Document AI.
//
// Jobs are batch processing operations. The operation name is the job ID and
// the processor writes its results as sharded Document JSON files under the
// requested Cloud Storage prefix. Each shard is served as one result page and
// the continuation token is the URI of the next shard.
//
// Usage Requirements:
//
// - Google Cloud project with Document AI API enabled
// - Document AI processor configured for OCR
// - Authentication via GOOGLE_APPLICATION_CREDENTIALS or application default credentials
package gdocai

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/gardar/ocrtable/pkg/extract"
	"github.com/gardar/ocrtable/pkg/storage"
)

var _ extract.Service = (*Service)(nil)

// ErrNoOutput is returned when a job is submitted without an output location.
var ErrNoOutput = errors.New("batch processing requires an output location")

// Config holds the settings for Google Document AI processing
type Config struct {
	ProjectID       string // Google Cloud project ID
	Location        string // Processor location (e.g., "us" or "eu")
	ProcessorID     string // Document AI processor ID
	CredentialsFile string // Service account key file, defaults to GOOGLE_APPLICATION_CREDENTIALS
}

// Storage reads the result shards written by the processor
type Storage interface {
	storage.Store
	storage.Lister
}

// batcher starts batch operations and reports their state
type batcher interface {
	start(ctx context.Context, req *documentaipb.BatchProcessRequest) (string, error)
	status(ctx context.Context, name string) (*documentaipb.BatchProcessMetadata, bool, error)
	close() error
}

// Service implements extract.Service on Document AI batch processing
type Service struct {
	cfg   Config
	batch batcher
	store Storage
}

// New creates a Service. The store must be able to read the Cloud Storage
// buckets the processor writes to.
func New(ctx context.Context, cfg Config, store Storage) (*Service, error) {
	batch, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:   cfg,
		batch: batch,
		store: store,
	}, nil
}

func (s *Service) Close() error {
	return s.batch.close()
}

func (s *Service) processorName() string {
	return fmt.Sprintf(
		"projects/%s/locations/%s/processors/%s",
		s.cfg.ProjectID, s.cfg.Location, s.cfg.ProcessorID,
	)
}

// Submit starts a batch operation for one document. The notification channel,
// request token and job tag have no Document AI counterpart and are ignored.
func (s *Service) Submit(ctx context.Context, req extract.SubmitRequest) (string, error) {
	if req.Output.Bucket == "" {
		return "", ErrNoOutput
	}

	batch := &documentaipb.BatchProcessRequest{
		Name: s.processorName(),
		InputDocuments: &documentaipb.BatchDocumentsInputConfig{
			Source: &documentaipb.BatchDocumentsInputConfig_GcsDocuments{
				GcsDocuments: &documentaipb.GcsDocuments{
					Documents: []*documentaipb.GcsDocument{
						{
							GcsUri:   gcsURI(req.Document.Bucket, req.Document.Key),
							MimeType: mimeType(req.Document.Key),
						},
					},
				},
			},
		},
		DocumentOutputConfig: &documentaipb.DocumentOutputConfig{
			Destination: &documentaipb.DocumentOutputConfig_GcsOutputConfig_{
				GcsOutputConfig: &documentaipb.DocumentOutputConfig_GcsOutputConfig{
					GcsUri: gcsURI(req.Output.Bucket, req.Output.Key),
				},
			},
		},
		SkipHumanReview: true,
	}

	name, err := s.batch.start(ctx, batch)
	if err != nil {
		return "", fmt.Errorf("failed to start batch processing: %w", err)
	}

	return name, nil
}

// Retrieve returns the blocks of one result shard of a finished operation
func (s *Service) Retrieve(ctx context.Context, jobID string, token string) (*extract.ResultPage, error) {
	meta, done, err := s.batch.status(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !done {
		return nil, fmt.Errorf("%w: %s", extract.ErrJobNotComplete, jobID)
	}

	switch meta.GetState() {
	case documentaipb.BatchProcessMetadata_FAILED, documentaipb.BatchProcessMetadata_CANCELLED:
		return nil, fmt.Errorf("%w: %s", extract.ErrJobFailed, meta.GetStateMessage())
	}

	shards, err := s.shards(ctx, meta)
	if err != nil {
		return nil, err
	}

	if len(shards) == 0 {
		return &extract.ResultPage{}, nil
	}

	index := 0
	if token != "" {
		if index = slices.Index(shards, token); index < 0 {
			return nil, fmt.Errorf("unknown continuation token %q", token)
		}
	}

	doc, err := s.readShard(ctx, shards[index])
	if err != nil {
		return nil, err
	}

	page := &extract.ResultPage{
		Blocks: blocksFromDocument(doc),
	}

	if index+1 < len(shards) {
		page.NextToken = shards[index+1]
	}

	return page, nil
}

// shards lists the JSON result files of every processed document in shard order
func (s *Service) shards(ctx context.Context, meta *documentaipb.BatchProcessMetadata) ([]string, error) {
	var result []string

	for _, status := range meta.GetIndividualProcessStatuses() {
		destination := status.GetOutputGcsDestination()
		if destination == "" {
			continue
		}

		bucket, prefix, err := storage.ParseURI(destination)
		if err != nil {
			return nil, err
		}

		keys, err := s.store.List(ctx, bucket, strings.TrimSuffix(prefix, "/")+"/")
		if err != nil {
			return nil, fmt.Errorf("failed to list results in %s: %w", destination, err)
		}

		var shards []string
		for _, key := range keys {
			if path.Ext(key) == ".json" {
				shards = append(shards, key)
			}
		}

		sort.SliceStable(shards, func(i, j int) bool {
			return shardIndex(shards[i]) < shardIndex(shards[j])
		})

		for _, key := range shards {
			result = append(result, gcsURI(bucket, key))
		}
	}

	return result, nil
}

func (s *Service) readShard(ctx context.Context, uri string) (*documentaipb.Document, error) {
	bucket, key, err := storage.ParseURI(uri)
	if err != nil {
		return nil, err
	}

	data, err := s.store.Get(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read shard %s: %w", uri, err)
	}

	var doc documentaipb.Document

	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode shard %s: %w", uri, err)
	}

	return &doc, nil
}

// shardIndex parses the shard number of names like "report-3.json".
// Names without a number sort first.
func shardIndex(key string) int {
	name := strings.TrimSuffix(path.Base(key), ".json")

	i := strings.LastIndex(name, "-")
	if i < 0 {
		return -1
	}

	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return -1
	}

	return n
}

func gcsURI(bucket, key string) string {
	return "gs://" + bucket + "/" + strings.TrimPrefix(key, "/")
}

func mimeType(key string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(key))); t != "" {
		t, _, _ = strings.Cut(t, ";")
		return t
	}
	return "application/pdf"
}
