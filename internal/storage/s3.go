package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"support-service/internal/models"
)

// ErrFileTooLarge is returned before any byte is uploaded.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// Class selects the bucket and size ceiling for an upload.
type Class int

const (
	// RequestMedia holds attachments added to a support request.
	RequestMedia Class = iota
	// ChatMedia holds chat attachments, voice notes included.
	ChatMedia
)

// Default ceilings, overridable via MAX_REQUEST_UPLOAD_BYTES and
// MAX_CHAT_UPLOAD_BYTES. One limit per attachment class, applied
// uniformly across call sites.
const (
	DefaultRequestLimit = 10 << 20
	DefaultChatLimit    = 20 << 20
)

// ObjectStorage turns a local file into a stored object with a public
// URL, and removes stored objects best-effort.
type ObjectStorage interface {
	Upload(ctx context.Context, class Class, ownerID, filename, contentType string, body io.Reader, size int64) (models.Attachment, error)
	Remove(ctx context.Context, class Class, urls []string)
	Limit(class Class) int64
}

// S3Storage is an aws-sdk-go-v2 implementation of ObjectStorage.
type S3Storage struct {
	client        *s3.Client
	requestBucket string
	chatBucket    string
	publicBaseURL string
	requestLimit  int64
	chatLimit     int64
}

// NewS3Storage builds the storage client from environment settings.
// S3_ENDPOINT supports MinIO-style deployments with path-style access.
func NewS3Storage(ctx context.Context) (*S3Storage, error) {
	region := getEnv("S3_REGION", "eu-central-1")

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if key := os.Getenv("S3_ACCESS_KEY"); key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, os.Getenv("S3_SECRET_KEY"), "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := os.Getenv("S3_ENDPOINT")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	st := &S3Storage{
		client:        client,
		requestBucket: getEnv("S3_REQUEST_BUCKET", "request-media"),
		chatBucket:    getEnv("S3_CHAT_BUCKET", "chat-media"),
		publicBaseURL: strings.TrimSuffix(getEnv("S3_PUBLIC_URL", endpoint), "/"),
		requestLimit:  getEnvInt64("MAX_REQUEST_UPLOAD_BYTES", DefaultRequestLimit),
		chatLimit:     getEnvInt64("MAX_CHAT_UPLOAD_BYTES", DefaultChatLimit),
	}
	if st.publicBaseURL == "" {
		st.publicBaseURL = fmt.Sprintf("https://s3.%s.amazonaws.com", region)
	}
	return st, nil
}

// Limit returns the size ceiling for an attachment class.
func (s *S3Storage) Limit(class Class) int64 {
	if class == ChatMedia {
		return s.chatLimit
	}
	return s.requestLimit
}

func (s *S3Storage) bucket(class Class) string {
	if class == ChatMedia {
		return s.chatBucket
	}
	return s.requestBucket
}

// Upload writes the object under {ownerId}/{timestamp}_{sanitizedName}
// and returns the attachment descriptor. Files over the class ceiling
// are rejected before any byte is sent; an exactly-at-limit file passes.
func (s *S3Storage) Upload(ctx context.Context, class Class, ownerID, filename, contentType string, body io.Reader, size int64) (models.Attachment, error) {
	if size > s.Limit(class) {
		return models.Attachment{}, ErrFileTooLarge
	}

	ext := filepath.Ext(filename)
	stem := SanitizeFileName(strings.TrimSuffix(filename, ext))
	storedName := fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), stem, ext)
	key := ownerID + "/" + storedName

	bucket := s.bucket(class)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return models.Attachment{}, fmt.Errorf("upload %s: %w", key, err)
	}

	fileType, icon := Classify(filename, contentType)
	return models.Attachment{
		URL:          s.PublicURL(bucket, key),
		Type:         fileType,
		Name:         storedName,
		OriginalName: filename,
		Icon:         icon,
	}, nil
}

// PublicURL derives the public URL for a stored object.
func (s *S3Storage) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, bucket, key)
}

// Remove deletes stored objects best-effort: failures are logged and
// tolerated, the caller proceeds regardless. Orphaned objects are an
// accepted outcome.
func (s *S3Storage) Remove(ctx context.Context, class Class, urls []string) {
	bucket := s.bucket(class)
	prefix := s.publicBaseURL + "/" + bucket + "/"
	for _, url := range urls {
		key := strings.TrimPrefix(url, prefix)
		if key == url || key == "" {
			log.Printf("storage remove: cannot derive key from %q", url)
			continue
		}
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			log.Printf("storage remove %s: %v", key, err)
		}
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var parsed int64
	if _, err := fmt.Sscan(val, &parsed); err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
