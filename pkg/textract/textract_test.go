package textract_test

import (
	"context"
	"testing"

	"github.com/gardar/ocrtable/pkg/extract"
	"github.com/gardar/ocrtable/pkg/textract"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstextract "github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	start *awstextract.StartDocumentTextDetectionInput
	gets  []*awstextract.GetDocumentTextDetectionInput

	responses map[string]*awstextract.GetDocumentTextDetectionOutput
}

func (f *fakeAPI) StartDocumentTextDetection(ctx context.Context, in *awstextract.StartDocumentTextDetectionInput, _ ...func(*awstextract.Options)) (*awstextract.StartDocumentTextDetectionOutput, error) {
	f.start = in
	return &awstextract.StartDocumentTextDetectionOutput{JobId: aws.String("job-1")}, nil
}

func (f *fakeAPI) GetDocumentTextDetection(ctx context.Context, in *awstextract.GetDocumentTextDetectionInput, _ ...func(*awstextract.Options)) (*awstextract.GetDocumentTextDetectionOutput, error) {
	f.gets = append(f.gets, in)

	if aws.ToString(in.JobId) == "unknown" {
		return nil, &smithy.GenericAPIError{Code: "InvalidJobIdException", Message: "no such job"}
	}

	return f.responses[aws.ToString(in.NextToken)], nil
}

func TestSubmit(t *testing.T) {
	api := &fakeAPI{}

	c, err := textract.New(context.Background(), textract.WithClient(api))
	require.NoError(t, err)

	jobID, err := c.Submit(context.Background(), extract.SubmitRequest{
		Document:     extract.Location{Bucket: "docs", Key: "in/report.pdf"},
		Output:       extract.Location{Bucket: "results", Key: "textract"},
		Notification: extract.Notification{Topic: "arn:aws:sns:topic", Role: "arn:aws:iam::role"},
		Token:        "token-1",
		Tag:          "report",
	})

	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)

	in := api.start
	require.Equal(t, "docs", aws.ToString(in.DocumentLocation.S3Object.Bucket))
	require.Equal(t, "in/report.pdf", aws.ToString(in.DocumentLocation.S3Object.Name))
	require.Equal(t, "results", aws.ToString(in.OutputConfig.S3Bucket))
	require.Equal(t, "textract", aws.ToString(in.OutputConfig.S3Prefix))
	require.Equal(t, "arn:aws:sns:topic", aws.ToString(in.NotificationChannel.SNSTopicArn))
	require.Equal(t, "arn:aws:iam::role", aws.ToString(in.NotificationChannel.RoleArn))
	require.Equal(t, "token-1", aws.ToString(in.ClientRequestToken))
	require.Equal(t, "report", aws.ToString(in.JobTag))
}

func TestSubmitMinimal(t *testing.T) {
	api := &fakeAPI{}

	c, err := textract.New(context.Background(), textract.WithClient(api))
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), extract.SubmitRequest{
		Document: extract.Location{Bucket: "docs", Key: "a.pdf"},
	})
	require.NoError(t, err)

	require.Nil(t, api.start.OutputConfig)
	require.Nil(t, api.start.NotificationChannel)
	require.Nil(t, api.start.ClientRequestToken)
}

func TestRetrieve(t *testing.T) {
	api := &fakeAPI{
		responses: map[string]*awstextract.GetDocumentTextDetectionOutput{
			"": {
				JobStatus: types.JobStatusSucceeded,
				Blocks: []types.Block{
					{BlockType: types.BlockTypePage, Page: aws.Int32(1)},
					{BlockType: types.BlockTypeLine, Page: aws.Int32(1), Text: aws.String("Hello")},
					{BlockType: types.BlockTypeWord, Page: aws.Int32(1), Text: aws.String("Hello")},
				},
				NextToken: aws.String("t1"),
			},
			"t1": {
				JobStatus: types.JobStatusSucceeded,
				Blocks: []types.Block{
					{BlockType: types.BlockTypeLine, Page: aws.Int32(2), Text: aws.String("42")},
					{BlockType: types.BlockTypeLine},
				},
			},
		},
	}

	c, err := textract.New(context.Background(), textract.WithClient(api), textract.WithMaxResults(500))
	require.NoError(t, err)

	pages, err := extract.FetchAllPages(context.Background(), c, "job-1")
	require.NoError(t, err)
	require.Len(t, pages, 2)

	require.Equal(t, []extract.ContentBlock{
		{Page: 1, Type: extract.BlockTypePage},
		{Page: 1, Type: extract.BlockTypeLine, Text: "Hello"},
		{Page: 1, Type: extract.BlockTypeWord, Text: "Hello"},
	}, pages[0].Blocks)

	require.Equal(t, []extract.ContentBlock{
		{Page: 2, Type: extract.BlockTypeLine, Text: "42"},
		{Page: 1, Type: extract.BlockTypeLine},
	}, pages[1].Blocks)

	require.Len(t, api.gets, 2)
	require.Equal(t, int32(500), aws.ToInt32(api.gets[0].MaxResults))
	require.Nil(t, api.gets[0].NextToken)
	require.Equal(t, "t1", aws.ToString(api.gets[1].NextToken))
}

func TestRetrieveStatus(t *testing.T) {
	api := &fakeAPI{
		responses: map[string]*awstextract.GetDocumentTextDetectionOutput{
			"": {JobStatus: types.JobStatusInProgress},
		},
	}

	c, err := textract.New(context.Background(), textract.WithClient(api))
	require.NoError(t, err)

	_, err = c.Retrieve(context.Background(), "job-1", "")
	require.ErrorIs(t, err, extract.ErrJobNotComplete)

	api.responses[""] = &awstextract.GetDocumentTextDetectionOutput{
		JobStatus:     types.JobStatusFailed,
		StatusMessage: aws.String("unsupported document"),
	}

	_, err = c.Retrieve(context.Background(), "job-1", "")
	require.ErrorIs(t, err, extract.ErrJobFailed)
	require.Contains(t, err.Error(), "unsupported document")

	_, err = c.Retrieve(context.Background(), "unknown", "")
	require.ErrorIs(t, err, extract.ErrJobNotFound)
}
