// process is the AWS Lambda function that turns a finished Textract job into
// a PageNo/Text table and uploads it to the output bucket.
//
// Trigger: SNS job-completion notifications published by Textract.
//
// Environment:
//
//	OUTPUT_BUCKET_NAME  Destination bucket of the table (required, alias BUCKET_NAME)
//	OUTPUT_S3_PREFIX    Key prefix of the table (alias PREFIX)
//	OUTPUT_FORMAT       csv (default) or xlsx
//	MAX_RESULT_PAGES    Abort jobs with more result pages, 0 = unlimited
//	RETRIEVE_RPS        Result retrievals per second, 0 = unlimited
//	KEEP_PAGE_NUMBERS   Keep pages whose text is only a page number
//	SORT_BY_PAGE        Order rows by page number instead of first appearance
//	RAW_BLOCKS          Emit one row per block instead of per page
//
// The table is written to <prefix>/<job id>.<format>.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	ocrevents "github.com/gardar/ocrtable/pkg/events"
	"github.com/gardar/ocrtable/pkg/config"
	"github.com/gardar/ocrtable/pkg/otel"
	"github.com/gardar/ocrtable/pkg/pipeline"
	"github.com/gardar/ocrtable/pkg/storage"
	"github.com/gardar/ocrtable/pkg/textract"
)

func main() {
	ctx := context.Background()

	flush := otel.SetupDefault(ctx, "ocrtable-process")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	svc, err := textract.New(ctx)
	if err != nil {
		log.Fatalf("Failed to create Textract client: %v", err)
	}

	store, err := storage.NewS3(ctx)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	processor := &pipeline.Processor{
		Config:  cfg,
		Service: svc,
		Store:   store,
		Logger:  slog.Default(),
	}

	lambda.Start(func(ctx context.Context, e events.SNSEvent) (pipeline.Response, error) {
		defer flush(ctx)

		completions, err := ocrevents.Completions(e)
		if err != nil {
			slog.Error("invalid completion event", "error", err)
			return pipeline.NewResponse(http.StatusBadRequest, "Invalid completion event!"), err
		}

		var resp pipeline.Response
		for _, c := range completions {
			if resp, err = processor.Handle(ctx, c); err != nil {
				return resp, err
			}
		}

		return resp, nil
	})
}
