// Package s3 stores cache entries as objects in an S3-compatible bucket.
//
// A storage key "<dir>/<key>" maps to the object "<Prefix>/<dir>/<key>.cache";
// its lock marker is the empty object "<...>/<key>.lock". Markers are plain
// objects, so they are visible to every process using the bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/unkn0wn-root/cachekit/internal/util"
	pr "github.com/unkn0wn-root/cachekit/provider"
)

const (
	dataExt = ".cache"
	lockExt = ".lock"

	// DeleteObjects accepts at most 1000 keys per request.
	deleteBatch = 1000
)

var ErrNoBucket = errors.New("s3 provider: bucket is required")

// API is the subset of *s3.Client the provider uses.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Provider struct {
	api    API
	bucket string
	prefix string
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	Bucket string
	Prefix string // optional object key prefix inside the bucket

	// Used by NewFromConfig only.
	Region    string
	Endpoint  string // S3-compatible endpoint (MinIO, R2); path-style addressing is used
	AccessKey string // with SecretKey: static credentials instead of the default chain
	SecretKey string
}

// New wraps an existing client.
func New(api API, cfg Config) (*Provider, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	return &Provider{
		api:    api,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// NewFromConfig builds an *s3.Client from the default AWS config chain
// (env, shared config, IMDS), overridden by cfg where set.
func NewFromConfig(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, cfg)
}

func (p *Provider) object(key, ext string) string {
	k := strings.TrimLeft(key, "/")
	if p.prefix != "" {
		k = p.prefix + "/" + k
	}
	return k + ext
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := p.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.object(key, dataExt)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set ignores ttl; expiry lives in the entry header. Use a bucket lifecycle
// rule if stale objects should also be reclaimed from storage.
func (p *Provider) Set(ctx context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	if err := p.put(ctx, p.object(key, dataExt), value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	return p.del(ctx, p.object(key, dataExt))
}

// Clear deletes the entry objects of prefix and of every key below it.
// Marker objects are left for their writers.
func (p *Provider) Clear(ctx context.Context, prefix string) error {
	base := p.object(prefix, "")
	pager := s3.NewListObjectsV2Paginator(p.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(base),
	})

	var batch []types.ObjectIdentifier
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out, err := p.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(p.bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		batch = batch[:0]
		if err != nil {
			return err
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return errors.New("s3 provider: delete " + aws.ToString(e.Key) + ": " + aws.ToString(e.Message))
		}
		return nil
	}

	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if !strings.HasSuffix(k, dataExt) || !util.UnderPrefix(stripExt(k), base) {
				continue // marker, or a sibling such as "<prefix>x/..."
			}
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

func (p *Provider) Lock(ctx context.Context, key string) error {
	return p.put(ctx, p.object(key, lockExt), nil)
}

func (p *Provider) Unlock(ctx context.Context, key string) error {
	return p.del(ctx, p.object(key, lockExt))
}

func (p *Provider) IsLocked(ctx context.Context, key string) (bool, error) {
	_, err := p.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.object(key, lockExt)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// LockedUnder lists marker objects at or below prefix, mapped back to keys.
func (p *Provider) LockedUnder(ctx context.Context, prefix string) ([]string, error) {
	base := p.object(prefix, "")
	pager := s3.NewListObjectsV2Paginator(p.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(base),
	})

	var keys []string
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			k, ok := strings.CutSuffix(aws.ToString(obj.Key), lockExt)
			if !ok || !util.UnderPrefix(k, base) {
				continue
			}
			keys = append(keys, prefix+strings.TrimPrefix(k, base))
		}
	}
	return keys, nil
}

func (p *Provider) Close(context.Context) error { return nil }

func (p *Provider) put(ctx context.Context, obj string, body []byte) error {
	_, err := p.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(obj),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/octet-stream"),
	})
	return err
}

// del treats a missing object as success; S3 itself already does for DeleteObject.
func (p *Provider) del(ctx context.Context, obj string) error {
	_, err := p.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(obj),
	})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func stripExt(k string) string {
	if s, ok := strings.CutSuffix(k, dataExt); ok {
		return s
	}
	if s, ok := strings.CutSuffix(k, lockExt); ok {
		return s
	}
	return k
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
