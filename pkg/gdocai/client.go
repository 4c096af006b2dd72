package gdocai

import (
	"context"
	"fmt"
	"os"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gardar/ocrtable/pkg/extract"
)

// client drives batch operations through the Document AI API
type client struct {
	processor *documentai.DocumentProcessorClient
}

func newClient(ctx context.Context, cfg Config) (*client, error) {
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)

	opts := []option.ClientOption{
		option.WithEndpoint(endpoint),
	}

	credentials := cfg.CredentialsFile
	if credentials == "" {
		credentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}

	processor, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}

	return &client{processor: processor}, nil
}

func (c *client) start(ctx context.Context, req *documentaipb.BatchProcessRequest) (string, error) {
	op, err := c.processor.BatchProcessDocuments(ctx, req)
	if err != nil {
		return "", err
	}

	return op.Name(), nil
}

// status polls the operation once. A finished operation that carries an
// error is reported as failed.
func (c *client) status(ctx context.Context, name string) (*documentaipb.BatchProcessMetadata, bool, error) {
	op := c.processor.BatchProcessDocumentsOperation(name)

	_, err := op.Poll(ctx)

	if err != nil && !op.Done() {
		if status.Code(err) == codes.NotFound {
			return nil, false, fmt.Errorf("%w: %s", extract.ErrJobNotFound, name)
		}
		return nil, false, fmt.Errorf("failed to poll operation %s: %w", name, err)
	}

	if err != nil {
		return nil, true, fmt.Errorf("%w: %w", extract.ErrJobFailed, err)
	}

	meta, err := op.Metadata()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read operation metadata: %w", err)
	}

	return meta, op.Done(), nil
}

func (c *client) close() error {
	return c.processor.Close()
}
