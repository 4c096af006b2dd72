// ocrtable is a command-line tool for running the text-table pipeline outside of AWS Lambda.
//
// It submits a document to a text-detection backend, waits for the job to finish and writes
// the per-page text table (optionally with the PDF's native annotations) to the configured
// output bucket.
//
// Configuration:
//
// The tool requires a YAML configuration file. Environment variables are expanded:
//
//	backend: textract          # textract, gdocai or hocr
//	output:
//	  bucket: results
//	  prefix: tables
//	  format: csv              # csv or xlsx
//	textract:
//	  region: eu-west-1
//	gdocai:
//	  project_id: "${GCP_PROJECT}"
//	  location: "eu"
//	  processor_id: "your-processor-id"
//
// Usage:
//
//	ocrtable -config config.yml -document s3://bucket/report.pdf [options]
//	ocrtable -config config.yml -job JOB_ID [-document s3://bucket/report.pdf] [options]
//
// Required flags:
//
//	-config string    Path to the YAML configuration file
//	-document string  Document URI to submit (required if -job is not defined)
//	-job string       ID of an already submitted job (required if -document is not defined)
//
// Options:
//
//	-dir string       Use a local directory as object store (bucket = subdirectory)
//	-annotate         Add the document's native PDF annotations as a column
//	-wait duration    Poll interval while waiting for the job (default 5s, 0 = submit only)
//	-timeout duration Give up waiting after this long (default 30m)
//
// Example:
//
//	ocrtable -config config.yml -document s3://docs/report.pdf -annotate
//	ocrtable -config hocr.yml -dir ./data -document file://docs/scan.pdf
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gardar/ocrtable/pkg/config"
	"github.com/gardar/ocrtable/pkg/events"
	"github.com/gardar/ocrtable/pkg/extract"
	"github.com/gardar/ocrtable/pkg/gdocai"
	"github.com/gardar/ocrtable/pkg/hocr"
	"github.com/gardar/ocrtable/pkg/otel"
	"github.com/gardar/ocrtable/pkg/pipeline"
	"github.com/gardar/ocrtable/pkg/storage"
	"github.com/gardar/ocrtable/pkg/textract"
)

// objectStore is what every backend needs from the object store
type objectStore interface {
	storage.Store
	storage.Lister
}

func main() {
	// Required flags.
	configPath := flag.String("config", "", "Path to the config YAML file (required)")
	documentURI := flag.String("document", "", "URI of the document to submit, e.g. s3://bucket/key.pdf (required if -job not specified)")
	jobID := flag.String("job", "", "ID of an already submitted job (required if -document not specified)")

	// Options
	dir := flag.String("dir", "", "Local directory used as object store, buckets are subdirectories")
	annotate := flag.Bool("annotate", false, "Add the native PDF annotations of the document as a column")
	wait := flag.Duration("wait", 5*time.Second, "Poll interval while waiting for the job, 0 submits only")
	timeout := flag.Duration("timeout", 30*time.Minute, "Maximum time to wait for the job")

	flag.Parse()

	// Validate that config is provided
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config flag is required")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Validate that either document or job flag is provided
	if *documentURI == "" && *jobID == "" {
		fmt.Fprintln(os.Stderr, "Error: Either -document or -job flag must be provided")
		fmt.Fprintln(os.Stderr, "Usage:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *annotate && *documentURI == "" {
		fmt.Fprintln(os.Stderr, "Error: -annotate requires -document")
		os.Exit(1)
	}

	ctx := context.Background()

	flush := otel.SetupDefault(ctx, "ocrtable")
	defer flush(ctx)

	// Load config from file.
	file, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg, err := file.Pipeline()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	store, err := newStore(ctx, file.Backend, *dir)
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	svc, err := newService(ctx, file, store)
	if err != nil {
		log.Fatalf("Failed to create %s backend: %v", file.Backend, err)
	}

	var doc extract.Location
	if *documentURI != "" {
		doc.Bucket, doc.Key, err = storage.ParseURI(*documentURI)
		if err != nil {
			log.Fatalf("Invalid document: %v", err)
		}
	}

	// Submit the document unless an existing job was given
	if *jobID == "" {
		submitter := &pipeline.Submitter{Config: cfg, Service: svc, Logger: slog.Default()}

		*jobID, err = submitter.Submit(ctx, events.Upload{Document: doc})
		if err != nil {
			log.Fatalf("Error submitting document: %v", err)
		}
		fmt.Println("Job submitted:", *jobID)

		if *wait == 0 {
			return
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	fmt.Println("Waiting for job to complete:", *jobID)
	if err := waitForJob(waitCtx, svc, *jobID, *wait); err != nil {
		log.Fatalf("Error waiting for job: %v", err)
	}

	completion := events.Completion{
		JobID:    *jobID,
		Status:   events.StatusSucceeded,
		Document: doc,
	}

	var resp pipeline.Response
	if *annotate {
		annotator := &pipeline.Annotator{Config: cfg, Service: svc, Store: store, Logger: slog.Default()}
		resp, err = annotator.Handle(ctx, completion)
	} else {
		processor := &pipeline.Processor{Config: cfg, Service: svc, Store: store, Logger: slog.Default()}
		resp, err = processor.Handle(ctx, completion)
	}

	if err != nil {
		log.Fatalf("Error processing job: %v", err)
	}

	fmt.Println("Done:", resp.Body)
}

func newStore(ctx context.Context, backend, dir string) (objectStore, error) {
	if dir != "" {
		return storage.NewDir(dir), nil
	}

	switch backend {
	case "gdocai":
		return storage.NewGCS(ctx)
	default:
		return storage.NewS3(ctx)
	}
}

func newService(ctx context.Context, f *config.File, store objectStore) (extract.Service, error) {
	switch f.Backend {
	case "textract":
		options := []textract.Option{}
		if f.Textract.Region != "" {
			options = append(options, textract.WithRegion(f.Textract.Region))
		}
		if f.Textract.MaxResults > 0 {
			options = append(options, textract.WithMaxResults(f.Textract.MaxResults))
		}
		return textract.New(ctx, options...)

	case "gdocai":
		return gdocai.New(ctx, gdocai.Config{
			ProjectID:       f.DocumentAI.ProjectID,
			Location:        f.DocumentAI.Location,
			ProcessorID:     f.DocumentAI.ProcessorID,
			CredentialsFile: f.DocumentAI.CredentialsFile,
		}, store)

	case "hocr":
		return hocr.NewService(store, f.HOCR.PagesPerResult), nil
	}

	return nil, fmt.Errorf("unknown backend %q", f.Backend)
}

// waitForJob polls the first result page until the job is no longer running
func waitForJob(ctx context.Context, svc extract.Service, jobID string, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, err := svc.Retrieve(ctx, jobID, "")
		if err == nil {
			return nil
		}
		if !errors.Is(err, extract.ErrJobNotComplete) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
