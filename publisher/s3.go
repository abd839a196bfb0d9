package publisher

import (
	"bytes"
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3Uploader hosts generated images on S3 so sheet rows can point at a
// public URL.
type S3Uploader struct {
	client *s3.Client
	bucket string
}

func NewS3Uploader(ctx context.Context, bucket, region string) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Uploader{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// Upload stores the PNG under a random key and returns its public URL.
func (u *S3Uploader) Upload(ctx context.Context, data []byte) (string, error) {
	key := "blog/" + uuid.NewString() + ".png"
	contentType := "image/png"
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload image to s3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, key), nil
}
