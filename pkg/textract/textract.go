// Package textract implements extract.Service on top of Amazon Textract's
// asynchronous text detection API.
//
// Submit starts a StartDocumentTextDetection job for a document stored in S3,
// optionally publishing the completion to an SNS topic. Retrieve reads one page
// of GetDocumentTextDetection results and converts the Textract blocks into
// extract.ContentBlock values.
package textract

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/aws/smithy-go"

	"github.com/gardar/ocrtable/pkg/extract"
)

var _ extract.Service = (*Client)(nil)

// API is the subset of the Textract client used here
type API interface {
	StartDocumentTextDetection(ctx context.Context, params *textract.StartDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.StartDocumentTextDetectionOutput, error)
	GetDocumentTextDetection(ctx context.Context, params *textract.GetDocumentTextDetectionInput, optFns ...func(*textract.Options)) (*textract.GetDocumentTextDetectionOutput, error)
}

type Client struct {
	client API

	region     string
	maxResults int32
}

type Option func(*Client)

// WithClient replaces the Textract client, mainly for tests
func WithClient(api API) Option {
	return func(c *Client) {
		c.client = api
	}
}

// WithRegion overrides the region of the default AWS configuration
func WithRegion(region string) Option {
	return func(c *Client) {
		c.region = region
	}
}

// WithMaxResults sets the number of blocks requested per result page (1-1000)
func WithMaxResults(n int32) Option {
	return func(c *Client) {
		c.maxResults = n
	}
}

// New creates a client. Unless WithClient is given, credentials and region
// come from the default AWS configuration chain.
func New(ctx context.Context, options ...Option) (*Client, error) {
	c := &Client{}

	for _, option := range options {
		option(c)
	}

	if c.client == nil {
		var opts []func(*config.LoadOptions) error
		if c.region != "" {
			opts = append(opts, config.WithRegion(c.region))
		}

		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}

		c.client = textract.NewFromConfig(cfg)
	}

	return c, nil
}

func (c *Client) Submit(ctx context.Context, req extract.SubmitRequest) (string, error) {
	input := &textract.StartDocumentTextDetectionInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{
				Bucket: aws.String(req.Document.Bucket),
				Name:   aws.String(req.Document.Key),
			},
		},
	}

	if req.Output.Bucket != "" {
		input.OutputConfig = &types.OutputConfig{
			S3Bucket: aws.String(req.Output.Bucket),
		}
		if req.Output.Key != "" {
			input.OutputConfig.S3Prefix = aws.String(req.Output.Key)
		}
	}

	if req.Notification.Topic != "" {
		input.NotificationChannel = &types.NotificationChannel{
			SNSTopicArn: aws.String(req.Notification.Topic),
			RoleArn:     aws.String(req.Notification.Role),
		}
	}

	if req.Token != "" {
		input.ClientRequestToken = aws.String(req.Token)
	}

	if req.Tag != "" {
		input.JobTag = aws.String(req.Tag)
	}

	out, err := c.client.StartDocumentTextDetection(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to start text detection for %s: %w", req.Document, err)
	}

	jobID := aws.ToString(out.JobId)
	if jobID == "" {
		return "", fmt.Errorf("text detection for %s returned no job id", req.Document)
	}

	return jobID, nil
}

func (c *Client) Retrieve(ctx context.Context, jobID string, token string) (*extract.ResultPage, error) {
	input := &textract.GetDocumentTextDetectionInput{
		JobId: aws.String(jobID),
	}

	if token != "" {
		input.NextToken = aws.String(token)
	}

	if c.maxResults > 0 {
		input.MaxResults = aws.Int32(c.maxResults)
	}

	out, err := c.client.GetDocumentTextDetection(ctx, input)
	if err != nil {
		return nil, convertError(err)
	}

	switch out.JobStatus {
	case types.JobStatusInProgress:
		return nil, fmt.Errorf("job %s: %w", jobID, extract.ErrJobNotComplete)

	case types.JobStatusFailed:
		return nil, fmt.Errorf("job %s: %w: %s", jobID, extract.ErrJobFailed, aws.ToString(out.StatusMessage))
	}

	return &extract.ResultPage{
		Blocks:    convertBlocks(out.Blocks),
		NextToken: aws.ToString(out.NextToken),
	}, nil
}

func convertError(err error) error {
	var ae smithy.APIError

	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "InvalidJobIdException":
			return fmt.Errorf("%w: %s", extract.ErrJobNotFound, ae.ErrorMessage())
		}
	}

	return err
}

// convertBlocks maps Textract blocks to content blocks. Blocks without a page
// belong to page 1, which is how Textract reports single-page documents.
func convertBlocks(blocks []types.Block) []extract.ContentBlock {
	result := make([]extract.ContentBlock, 0, len(blocks))

	for _, b := range blocks {
		page := 1
		if b.Page != nil {
			page = int(*b.Page)
		}

		result = append(result, extract.ContentBlock{
			Page: page,
			Type: extract.BlockType(b.BlockType),
			Text: aws.ToString(b.Text),
		})
	}

	return result
}
