// Package events converts trigger payloads into the typed records the
// pipeline handlers consume.
//
// Uploads come from S3 object-created notifications; completions come from
// the JSON message Textract publishes to SNS when a job finishes. Missing or
// malformed fields are rejected here, at the boundary, so handlers can rely on
// every record being complete.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"

	"github.com/gardar/ocrtable/pkg/extract"
)

var (
	// ErrNoRecords is returned for events without any record.
	ErrNoRecords = errors.New("event has no records")

	// ErrInvalidMessage is returned when a completion message cannot be decoded.
	ErrInvalidMessage = errors.New("invalid completion message")
)

// Completion statuses reported by the text-detection service
const (
	StatusSucceeded      = "SUCCEEDED"
	StatusPartialSuccess = "PARTIAL_SUCCESS"
	StatusFailed         = "FAILED"
	StatusError          = "ERROR"
)

// Upload is a newly stored document. Version identifies the stored content:
// the object version ID when versioning is enabled, else the ETag, else the
// event sequencer.
type Upload struct {
	Document extract.Location
	Version  string
}

// Completion signals that an extraction job finished
type Completion struct {
	JobID    string
	Status   string
	API      string
	Tag      string
	Document extract.Location
}

// Succeeded reports whether results can be retrieved for the job. An empty
// status is treated as success since older producers omit it.
func (c Completion) Succeeded() bool {
	switch c.Status {
	case "", StatusSucceeded, StatusPartialSuccess:
		return true
	}
	return false
}

// Uploads extracts every uploaded object from an S3 notification. Keys arrive
// URL-encoded with '+' for spaces and are decoded.
func Uploads(e events.S3Event) ([]Upload, error) {
	if len(e.Records) == 0 {
		return nil, ErrNoRecords
	}

	uploads := make([]Upload, 0, len(e.Records))

	for i, record := range e.Records {
		bucket := record.S3.Bucket.Name
		if bucket == "" {
			return nil, fmt.Errorf("record %d: missing bucket name", i)
		}

		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("record %d: invalid object key %q: %w", i, record.S3.Object.Key, err)
		}
		if key == "" {
			return nil, fmt.Errorf("record %d: missing object key", i)
		}

		uploads = append(uploads, Upload{
			Document: extract.Location{Bucket: bucket, Key: key},
			Version:  objectVersion(record.S3.Object),
		})
	}

	return uploads, nil
}

func objectVersion(o events.S3Object) string {
	switch {
	case o.VersionID != "":
		return o.VersionID
	case o.ETag != "":
		return o.ETag
	}
	return o.Sequencer
}

// completionMessage is the JSON body of a job completion notification
type completionMessage struct {
	JobID            string `json:"JobId"`
	Status           string `json:"Status"`
	API              string `json:"API"`
	JobTag           string `json:"JobTag"`
	Timestamp        int64  `json:"Timestamp"`
	DocumentLocation struct {
		S3ObjectName string `json:"S3ObjectName"`
		S3Bucket     string `json:"S3Bucket"`
	} `json:"DocumentLocation"`
}

// ParseCompletion decodes a completion notification message
func ParseCompletion(message string) (Completion, error) {
	var m completionMessage

	if err := json.Unmarshal([]byte(message), &m); err != nil {
		return Completion{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	if m.JobID == "" {
		return Completion{}, fmt.Errorf("%w: missing JobId", ErrInvalidMessage)
	}

	return Completion{
		JobID:  m.JobID,
		Status: m.Status,
		API:    m.API,
		Tag:    m.JobTag,
		Document: extract.Location{
			Bucket: m.DocumentLocation.S3Bucket,
			Key:    m.DocumentLocation.S3ObjectName,
		},
	}, nil
}

// Completions decodes the completion message of every SNS record
func Completions(e events.SNSEvent) ([]Completion, error) {
	if len(e.Records) == 0 {
		return nil, ErrNoRecords
	}

	result := make([]Completion, 0, len(e.Records))

	for i, record := range e.Records {
		c, err := ParseCompletion(record.SNS.Message)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		result = append(result, c)
	}

	return result, nil
}
