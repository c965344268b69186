// Package mirror copies finished batches to an S3-compatible bucket before
// the upload stage deletes them locally.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/profilebot/internal/filex"
	"github.com/dmitrijs2005/profilebot/internal/logging"
)

// KeyPrefix is the top-level folder of mirrored files.
const KeyPrefix = "variants"

// Seams for tests.
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures the mirror. Endpoint selects a non-AWS service and
// switches to path-style addressing. Without AccessKey the default AWS
// credential chain is used.
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Logger    logging.Logger
}

type S3Mirror struct {
	bucket string
	client objectPutter
	log    logging.Logger
}

// New builds the S3 client.
func New(ctx context.Context, o Options) (*S3Mirror, error) {
	if o.Bucket == "" {
		return nil, errors.New("mirror bucket is not set")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load mirror config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return newMirror(o.Bucket, client, o.Logger), nil
}

func newMirror(bucket string, client objectPutter, log logging.Logger) *S3Mirror {
	if log == nil {
		log = logging.Nop()
	}
	return &S3Mirror{bucket: bucket, client: client, log: log}
}

// ObjectKey returns "variants/<model>/<file>".
func ObjectKey(modelName, file string) string {
	return path.Join(KeyPrefix, filex.SanitizeName(modelName), filepath.Base(file))
}

// MirrorBatch uploads every file. It keeps going after a failed file and
// returns all failures joined.
func (m *S3Mirror) MirrorBatch(ctx context.Context, modelName string, files []string) error {
	var errs []error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := ObjectKey(modelName, f)
		if err := m.put(ctx, key, f); err != nil {
			errs = append(errs, fmt.Errorf("mirror %s: %w", key, err))
			continue
		}
		m.log.Debug(ctx, "mirrored", logging.KeyItem, modelName, "bucket", m.bucket, "key", key)
	}
	return errors.Join(errs...)
}

func (m *S3Mirror) put(ctx context.Context, key, file string) error {
	fh, err := os.Open(file)
	if err != nil {
		return err
	}
	defer fh.Close()

	st, err := fh.Stat()
	if err != nil {
		return err
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          fh,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String(contentType(file)),
	})
	return err
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".3mf":
		return "model/3mf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
