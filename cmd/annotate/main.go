// annotate is the AWS Lambda function that builds a PageNo/Text/Annotation
// table from a finished Textract job and the annotations embedded in the
// source PDF.
//
// Trigger: SNS job-completion notifications published by Textract.
//
// Environment: the same variables as the process function. The source
// document is read from the location named in the completion message and the
// table is written to <prefix>/<document name>.<format>.
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

	flush := otel.SetupDefault(ctx, "ocrtable-annotate")

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

	annotator := &pipeline.Annotator{
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
			if resp, err = annotator.Handle(ctx, c); err != nil {
				return resp, err
			}
		}

		return resp, nil
	})
}
