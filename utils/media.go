// utils/media.go
package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var mediaClient *s3.Client
var mediaBucket string
var cdnBaseURL string

var (
	ErrMediaTooLarge = errors.New("media file exceeds the size limit")
	ErrMediaNotImage = errors.New("media file is not an image")
)

// InitMediaStore configures the R2 bucket that holds clan emblems and course
// cover images.
func InitMediaStore() error {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")
	mediaBucket = os.Getenv("R2_BUCKET_NAME")
	cdnBaseURL = os.Getenv("CDN_BASE_URL")
	if cdnBaseURL == "" {
		cdnBaseURL = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to load media store config: %w", err)
	}

	mediaClient = s3.NewFromConfig(cfg)
	return nil
}

// UploadImage validates and uploads a user-submitted image, returning its
// public CDN URL. key is the object key (e.g., "emblems/abc123.png"). The
// declared content type is ignored; the bytes themselves must sniff as an
// image.
func UploadImage(fileHeader *multipart.FileHeader, key string, maxBytes int64) (string, error) {
	if fileHeader.Size > maxBytes {
		return "", ErrMediaTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(file, maxBytes+1)); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if int64(buf.Len()) > maxBytes {
		return "", ErrMediaTooLarge
	}

	contentType, err := SniffImageType(buf.Bytes())
	if err != nil {
		return "", err
	}

	_, err = mediaClient.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(mediaBucket),
		Key:         aws.String(key),
		Body:        buf,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	return fmt.Sprintf("%s/%s", cdnBaseURL, key), nil
}

// SniffImageType detects the content type from the leading bytes and rejects
// anything that is not an image.
func SniffImageType(data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	switch contentType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return contentType, nil
	default:
		return "", ErrMediaNotImage
	}
}
