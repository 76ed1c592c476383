package objectstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testS3Options() S3Options {
	return S3Options{
		Bucket:       "diary-uploads",
		Region:       "us-east-1",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		BaseEndpoint: "http://127.0.0.1:9000",
		UsePathStyle: true,
	}
}

func stubS3Seams(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	origDel := deleteObjects
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
		deleteObjects = origDel
	})
}

func TestNewS3Store_AppliesOptions(t *testing.T) {
	stubS3Seams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var captured s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&captured)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }

	st, err := NewS3Store(context.Background(), testS3Options())
	require.NoError(t, err)
	assert.Equal(t, "diary-uploads", st.Bucket())
	require.NotNil(t, captured.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *captured.BaseEndpoint)
	assert.True(t, captured.UsePathStyle)
}

func TestNewS3Store_LoadConfigError(t *testing.T) {
	stubS3Seams(t)
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), testS3Options())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no config")
}

func TestS3Store_PresignPutSignsContentType(t *testing.T) {
	stubS3Seams(t)

	var gotIn *s3.PutObjectInput
	var gotExpires time.Duration
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotIn = in
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		gotExpires = po.Expires
		return &v4.PresignedHTTPRequest{URL: "https://signed/put", Method: "PUT"}, nil
	}

	st := &S3Store{bucket: "b", client: &s3.Client{}, presign: &s3.PresignClient{}}
	u, err := st.PresignPut(context.Background(), "u1/2025-01-01-a.png", "image/png", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://signed/put", u)
	assert.Equal(t, "b", aws.ToString(gotIn.Bucket))
	assert.Equal(t, "u1/2025-01-01-a.png", aws.ToString(gotIn.Key))
	assert.Equal(t, "image/png", aws.ToString(gotIn.ContentType))
	assert.Equal(t, 5*time.Minute, gotExpires)
}

func TestS3Store_PresignErrors(t *testing.T) {
	stubS3Seams(t)
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("put boom")
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("get boom")
	}

	st := &S3Store{bucket: "b", client: &s3.Client{}, presign: &s3.PresignClient{}}
	_, err := st.PresignPut(context.Background(), "k", "image/png", time.Minute)
	require.EqualError(t, err, "put boom")
	_, err = st.PresignGet(context.Background(), "k", time.Minute)
	require.EqualError(t, err, "get boom")
}

func TestS3Store_PresignWithRealSigner(t *testing.T) {
	st, err := NewS3Store(context.Background(), testS3Options())
	require.NoError(t, err)

	u, err := st.PresignGet(context.Background(), "u1/2025-01-01-a.png", 500*time.Second)
	require.NoError(t, err)
	assert.Contains(t, u, "http://127.0.0.1:9000/diary-uploads/u1/2025-01-01-a.png")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=500")
}

func TestS3Store_DeleteObjectsBatchesAndCollectsErrors(t *testing.T) {
	stubS3Seams(t)

	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("u1/k%d", i)
	}

	var batches []int
	deleteObjects = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
		assert.True(t, aws.ToBool(in.Delete.Quiet))
		batches = append(batches, len(in.Delete.Objects))
		out := &s3.DeleteObjectsOutput{}
		if len(batches) == 2 {
			out.Errors = []types.Error{{
				Key:     in.Delete.Objects[0].Key,
				Code:    aws.String("AccessDenied"),
				Message: aws.String("Access Denied"),
			}}
		}
		return out, nil
	}

	st := &S3Store{bucket: "b", client: &s3.Client{}}
	failures, err := st.DeleteObjects(context.Background(), keys)
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 1000, 500}, batches)
	assert.Equal(t, []DeleteError{{Key: "u1/k1000", Code: "AccessDenied", Message: "Access Denied"}}, failures)
}

func TestS3Store_DeleteObjectsCallError(t *testing.T) {
	stubS3Seams(t)
	deleteObjects = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
		return nil, errors.New("connection reset")
	}

	st := &S3Store{bucket: "b", client: &s3.Client{}}
	failures, err := st.DeleteObjects(context.Background(), []string{"u1/a"})
	require.Error(t, err)
	assert.Nil(t, failures)
}

func TestS3Store_DeleteObjectsEmpty(t *testing.T) {
	stubS3Seams(t)
	deleteObjects = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
		t.Fatal("no request expected")
		return nil, nil
	}

	st := &S3Store{bucket: "b", client: &s3.Client{}}
	failures, err := st.DeleteObjects(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, failures)
}
