// submit is the AWS Lambda function that starts a Textract text-detection job
// for every document uploaded to the source bucket.
//
// Trigger: S3 object-created notifications.
//
// Environment:
//
//	OUTPUT_BUCKET_NAME  Bucket Textract writes its own result files to (alias BUCKET_NAME)
//	OUTPUT_S3_PREFIX    Key prefix for those files (alias PREFIX)
//	SNS_TOPIC_ARN       Topic Textract publishes job completions to
//	SNS_ROLE_ARN        Role Textract assumes to publish to the topic
//
// Logs are written as JSON to stdout, or exported over OTLP when
// OTEL_EXPORTER_OTLP_ENDPOINT is set.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	ocrevents "github.com/gardar/ocrtable/pkg/events"
	"github.com/gardar/ocrtable/pkg/config"
	"github.com/gardar/ocrtable/pkg/otel"
	"github.com/gardar/ocrtable/pkg/pipeline"
	"github.com/gardar/ocrtable/pkg/textract"
)

func main() {
	ctx := context.Background()

	flush := otel.SetupDefault(ctx, "ocrtable-submit")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	svc, err := textract.New(ctx)
	if err != nil {
		log.Fatalf("Failed to create Textract client: %v", err)
	}

	submitter := &pipeline.Submitter{
		Config:  cfg,
		Service: svc,
		Logger:  slog.Default(),
	}

	lambda.Start(func(ctx context.Context, e events.S3Event) (pipeline.Response, error) {
		defer flush(ctx)

		uploads, err := ocrevents.Uploads(e)
		if err != nil && !errors.Is(err, ocrevents.ErrNoRecords) {
			slog.Error("invalid upload event", "error", err)
			return pipeline.NewResponse(http.StatusBadRequest, "Invalid upload event!"), err
		}

		return submitter.Handle(ctx, uploads)
	})
}
