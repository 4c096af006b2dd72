// Package extract defines the contract between the pipeline and an asynchronous
// text-detection service, together with the paginator that drains a finished job.
//
// A job is started with Submit and its results are read back in pages with
// Retrieve. Each page carries a slice of typed content blocks and, when more
// results exist, a continuation token for the next call.
//
// Key Types:
//
// - Service: Submit/Retrieve contract implemented by the textract, gdocai and hocr packages
// - ResultPage: One paginated response holding content blocks and a continuation token
// - ContentBlock: A typed unit of extracted content tagged with its source page number
// - Paginator: Follows continuation tokens until the job is exhausted
package extract

import (
	"context"
	"errors"
)

var (
	// ErrJobNotFound is returned when the service does not know the job identifier.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotComplete is returned when results are requested before the job finished.
	ErrJobNotComplete = errors.New("job not complete")

	// ErrJobFailed is returned when the service reports the job as failed.
	ErrJobFailed = errors.New("job failed")

	// ErrTooManyPages is returned when a job yields more result pages than allowed.
	ErrTooManyPages = errors.New("too many result pages")
)

// Service is an asynchronous text-detection backend.
type Service interface {
	// Submit starts a job for the document and returns its identifier.
	Submit(ctx context.Context, req SubmitRequest) (string, error)

	// Retrieve returns one page of results. An empty token requests the first page.
	Retrieve(ctx context.Context, jobID string, token string) (*ResultPage, error)
}

// Location addresses an object in a bucket-based object store
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return l.Bucket + "/" + l.Key
}

// Notification names the channel a service signals job completion on
type Notification struct {
	Topic string // Topic identifier (e.g. SNS topic ARN)
	Role  string // Role the service assumes to publish
}

// SubmitRequest describes a new extraction job
type SubmitRequest struct {
	Document     Location     // Source document
	Output       Location     // Bucket and key prefix for service-side output
	Notification Notification // Completion signal, may be empty

	// Token makes the submission idempotent: resubmitting with the same
	// token returns the existing job instead of starting a new one.
	Token string

	// Tag is an opaque label echoed back in the completion notification.
	Tag string
}
