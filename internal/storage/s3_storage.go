package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/syed-c/foster-care-sub001/internal/config"
)

// PresignExpiry is how long an upload URL stays valid.
const PresignExpiry = 15 * time.Minute

// AllowedImageTypes maps accepted upload content types to the stored extension.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// IS3Storage defines the object storage operations used for agency media.
type IS3Storage interface {
	GeneratePresignedPutURL(ctx context.Context, agencyID, kind, contentType string) (url string, key string, err error)
	PublicURL(key string) string
	OwnsKey(agencyID, kind, key string) bool
}

// ObjectAPI is the subset of the S3 client used by background image processing.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Storage struct {
	bucket        string
	publicBaseURL string
	presignClient *s3.PresignClient
}

// LoadAWSConfig resolves the shared AWS configuration. Static keys from the
// config win; otherwise the default credential chain applies.
func LoadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKeyID != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(cfg *config.Config, client *s3.Client) IS3Storage {
	base := cfg.ImageBaseS3URL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.AwsS3Bucket, cfg.AwsRegion)
	}
	return &s3Storage{
		bucket:        cfg.AwsS3Bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		presignClient: s3.NewPresignClient(client),
	}
}

// ObjectKey returns a fresh key for an agency media upload.
func ObjectKey(agencyID, kind, contentType string) string {
	return path.Join("agencies", agencyID, kind, uuid.NewString()+AllowedImageTypes[contentType])
}

// GeneratePresignedPutURL creates a pre-signed URL for uploading an object.
// It returns the URL and the generated S3 object key.
func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, agencyID, kind, contentType string) (string, string, error) {
	if _, ok := AllowedImageTypes[contentType]; !ok {
		return "", "", fmt.Errorf("unsupported content type %q", contentType)
	}
	objectKey := ObjectKey(agencyID, kind, contentType)

	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}
	return req.URL, objectKey, nil
}

// PublicURL is the address an uploaded object is served from.
func (s *s3Storage) PublicURL(key string) string {
	return s.publicBaseURL + "/" + strings.TrimLeft(key, "/")
}

// OwnsKey reports whether key was issued for this agency and media kind.
func (s *s3Storage) OwnsKey(agencyID, kind, key string) bool {
	return OwnsKey(agencyID, kind, key)
}

// OwnsKey reports whether key lives under the agency's prefix for kind.
func OwnsKey(agencyID, kind, key string) bool {
	prefix := path.Join("agencies", agencyID, kind) + "/"
	clean := path.Clean(key)
	return strings.HasPrefix(clean, prefix) && !strings.Contains(key, "..")
}
