// Package s3 implements provider.Provider on an S3-compatible bucket.
// The object ETag serves as the revision; conditional writes (If-Match,
// If-None-Match) give the same optimistic concurrency the document store
// relies on.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/flogger/internal/client/provider"
	"github.com/dmitrijs2005/flogger/internal/logging"
)

// API is the subset of *s3.Client used here.
type API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// Prefix scopes all keys, e.g. "journal/".
	Prefix string
}

type Bucket struct {
	api    API
	bucket string
	prefix string
	log    logging.Logger
}

// New builds an *s3.Client from opts. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies. A custom
// Endpoint switches to path-style addressing for MinIO and similar servers.
func New(ctx context.Context, opts Options, log logging.Logger) (*Bucket, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithAPI(client, opts.Bucket, opts.Prefix, log), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api API, bucket, prefix string, log logging.Logger) *Bucket {
	if log == nil {
		log = logging.Nop{}
	}
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Bucket{api: api, bucket: bucket, prefix: prefix, log: log.With("provider", "s3", "bucket", bucket)}
}

func (b *Bucket) key(path string) string {
	return b.prefix + strings.TrimLeft(path, "/")
}

func (b *Bucket) path(key string) string {
	return "/" + strings.TrimPrefix(key, b.prefix)
}

func (b *Bucket) ListFolder(ctx context.Context, path string, recursive bool) ([]provider.Entry, error) {
	prefix := b.key(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	in := &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket), Prefix: aws.String(prefix)}
	if !recursive {
		in.Delimiter = aws.String("/")
	}

	var out []provider.Entry
	p := s3.NewListObjectsV2Paginator(b.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", path, mapError(err))
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			out = append(out, provider.Entry{
				Path:           b.path(key),
				Revision:       aws.ToString(obj.ETag),
				Tag:            provider.TagFile,
				ServerModified: aws.ToTime(obj.LastModified),
			})
		}
		for _, cp := range page.CommonPrefixes {
			out = append(out, provider.Entry{
				Path: strings.TrimSuffix(b.path(aws.ToString(cp.Prefix)), "/"),
				Tag:  provider.TagFolder,
			})
		}
	}

	b.log.Debug(ctx, "listed prefix", "prefix", prefix, "count", len(out))
	return out, nil
}

func (b *Bucket) Download(ctx context.Context, path string) (provider.File, error) {
	res, err := b.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.key(path))})
	if err != nil {
		return provider.File{}, fmt.Errorf("get %s: %w", path, mapError(err))
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return provider.File{}, fmt.Errorf("read %s: %w", path, mapError(err))
	}
	return provider.File{Revision: aws.ToString(res.ETag), Content: body}, nil
}

func (b *Bucket) Upload(ctx context.Context, path string, content []byte, mode provider.WriteMode) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(path)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("text/plain; charset=utf-8"),
	}
	if mode.Update {
		in.IfMatch = aws.String(mode.Revision)
	} else {
		in.IfNoneMatch = aws.String("*")
	}

	res, err := b.api.PutObject(ctx, in)
	if err != nil {
		return "", fmt.Errorf("put %s (%s): %w", path, mode, withConflict(mapError(err), path, mode.Revision))
	}
	return aws.ToString(res.ETag), nil
}

func (b *Bucket) Delete(ctx context.Context, path, parentRev string) error {
	in := &s3.DeleteObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.key(path))}
	if parentRev != "" {
		in.IfMatch = aws.String(parentRev)
	}
	if _, err := b.api.DeleteObject(ctx, in); err != nil {
		return fmt.Errorf("delete %s: %w", path, withConflict(mapError(err), path, parentRev))
	}
	return nil
}

// CurrentAccount checks the bucket is reachable. S3 has no user identity, so
// the bucket URI stands in for the owner.
func (b *Bucket) CurrentAccount(ctx context.Context) (provider.Account, error) {
	if _, err := b.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)}); err != nil {
		return provider.Account{}, fmt.Errorf("head bucket: %w", mapError(err))
	}
	uri := "s3://" + b.bucket + "/" + b.prefix
	return provider.Account{Email: uri, DisplayName: uri}, nil
}
