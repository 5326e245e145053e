package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicBase string
	PresignTTL time.Duration
}

// MediaStore hands out pre-signed PUT URLs so clients upload message
// media directly to object storage; the service never proxies bytes.
type MediaStore struct {
	cfg     S3Config
	presign *s3.PresignClient
}

// allowedContentTypes limits uploads to the media kinds a message can
// actually carry.
var allowedContentTypes = map[string]string{
	"image/jpeg": "images",
	"image/png":  "images",
	"image/gif":  "images",
	"image/webp": "images",
	"video/mp4":  "videos",
	"video/webm": "videos",
	"audio/mpeg": "audio",
	"audio/ogg":  "audio",
	"audio/mp4":  "audio",
}

const maxUploadBytes = 50 << 20

func NewMediaStore(ctx context.Context, cfg S3Config) (*MediaStore, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}
	if cfg.PresignTTL == 0 {
		cfg.PresignTTL = 15 * time.Minute
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: cfg.Endpoint, SigningRegion: cfg.Region}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &MediaStore{
		cfg:     cfg,
		presign: s3.NewPresignClient(client),
	}, nil
}

// PresignUpload validates the declared content type and size, then
// returns a pre-signed PUT URL and the object key it covers.
func (m *MediaStore) PresignUpload(ctx context.Context, userID uuid.UUID, fileName, contentType string, size int64) (uploadURL, objectKey string, err error) {
	folder, ok := allowedContentTypes[strings.ToLower(contentType)]
	if !ok {
		return "", "", fmt.Errorf("unsupported content type %q", contentType)
	}
	if size <= 0 || size > maxUploadBytes {
		return "", "", fmt.Errorf("file size must be between 1 and %d bytes", maxUploadBytes)
	}

	ext := path.Ext(fileName)
	objectKey = fmt.Sprintf("%s/%s/%s%s", folder, userID, uuid.New(), ext)

	presigned, err := m.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(objectKey),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}, func(po *s3.PresignOptions) {
		po.Expires = m.cfg.PresignTTL
	})
	if err != nil {
		return "", "", err
	}
	return presigned.URL, objectKey, nil
}

// PublicURL maps an object key to its public serving URL.
func (m *MediaStore) PublicURL(objectKey string) string {
	if m.cfg.PublicBase == "" || objectKey == "" {
		return ""
	}
	return strings.TrimSuffix(m.cfg.PublicBase, "/") + "/" + objectKey
}

// PresignTTL exposes the configured URL lifetime.
func (m *MediaStore) PresignTTL() time.Duration {
	return m.cfg.PresignTTL
}
