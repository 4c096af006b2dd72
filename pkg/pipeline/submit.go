package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/gardar/ocrtable/pkg/events"
	"github.com/gardar/ocrtable/pkg/extract"
)

// ErrNoRecords is returned when Handle is called without uploads.
var ErrNoRecords = errors.New("no upload records")

// Submitter starts a text-detection job for each uploaded document
type Submitter struct {
	Config  Config
	Service extract.Service
	Logger  *slog.Logger
}

// Handle submits one job per upload. The first submission failure stops the
// invocation so the trigger can redeliver the event; jobs already started are
// deduplicated on redelivery by their request token. A new version of a
// document under the same key gets a new token and therefore a new job.
func (s *Submitter) Handle(ctx context.Context, uploads []events.Upload) (Response, error) {
	if len(uploads) == 0 {
		loggerOrDefault(s.Logger).Warn("event has no upload records")
		return NewResponse(http.StatusBadRequest, "No upload records."), ErrNoRecords
	}

	for _, u := range uploads {
		if _, err := s.Submit(ctx, u); err != nil {
			return NewResponse(http.StatusInternalServerError, "Job creation failed!"), err
		}
	}

	return NewResponse(http.StatusOK, "Job created successfully!"), nil
}

// Submit starts a job for one uploaded document and returns its ID
func (s *Submitter) Submit(ctx context.Context, u events.Upload) (string, error) {
	doc := u.Document
	logger := loggerOrDefault(s.Logger).With("bucket", doc.Bucket, "key", doc.Key, "version", u.Version)

	logger.Info("submitting document")

	jobID, err := s.Service.Submit(ctx, extract.SubmitRequest{
		Document: doc,
		Output: extract.Location{
			Bucket: s.Config.OutputBucket,
			Key:    s.Config.OutputPrefix,
		},
		Notification: extract.Notification{
			Topic: s.Config.NotificationTopic,
			Role:  s.Config.NotificationRole,
		},
		Token: RequestToken(doc, u.Version),
		Tag:   JobTag(doc.Key),
	})

	if err != nil {
		logger.Error("job creation failed", "error", err)
		return "", fmt.Errorf("failed to submit %s: %w", doc, err)
	}

	logger.Info("job created", "job_id", jobID)

	return jobID, nil
}

// RequestToken derives a stable idempotency token from a document location
// and the version of its content. Redelivered events for the same upload
// share a token; re-uploads under the same key do not.
func RequestToken(doc extract.Location, version string) string {
	name := "s3://" + doc.Bucket + "/" + doc.Key
	if version != "" {
		name += "#" + version
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

var invalidTagChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-:]+`)

// JobTag derives a job tag from the document's base name. Tags are limited to
// 64 characters of [a-zA-Z0-9_.-:].
func JobTag(key string) string {
	base := path.Base(key)
	base = strings.TrimSuffix(base, path.Ext(base))

	tag := invalidTagChars.ReplaceAllString(base, "_")
	if len(tag) > 64 {
		tag = tag[:64]
	}

	return tag
}
