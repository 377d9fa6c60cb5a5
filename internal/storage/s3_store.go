package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// s3API is the subset of the S3 client the store calls
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads to S3 or an S3-compatible service such as MinIO.
type S3Store struct {
	client        s3API
	region        string
	endpoint      string
	publicBaseURL string
}

// S3StoreConfig holds configuration for S3Store.
type S3StoreConfig struct {
	Region        string
	Endpoint      string // Optional custom endpoint (MinIO, LocalStack)
	PublicBaseURL string
}

// NewS3Store loads AWS config from the default credential chain
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load AWS config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
	})

	return newS3StoreWithClient(client, cfg), nil
}

func newS3StoreWithClient(client s3API, cfg S3StoreConfig) *S3Store {
	return &S3Store{
		client:        client,
		region:        cfg.Region,
		endpoint:      cfg.Endpoint,
		publicBaseURL: cfg.PublicBaseURL,
	}
}

// Upload puts the object with a public-read friendly content type
func (s *S3Store) Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) (result0 string, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "S3Store.Upload", observability.AttributeObjectPath(bucket, path)...)
	defer observability.FinishSpan(span, &err)

	if err := validateObjectPath(bucket, path); err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(path),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", uploadError("s3", err)
	}

	return s.PublicURL(bucket, path), nil
}

// PublicURL prefers the configured base URL, then the custom endpoint in path style,
// then the regional virtual-hosted AWS URL.
func (s *S3Store) PublicURL(bucket, path string) string {
	switch {
	case s.publicBaseURL != "":
		return joinURL(s.publicBaseURL, bucket, path)
	case s.endpoint != "":
		return joinURL(s.endpoint, bucket, path)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, path)
	}
}
