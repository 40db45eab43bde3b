// Package s3 implements a document store on an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"fitcore/internal/infra/source/docstore"
)

// Store maps keys to objects of a single bucket.
type Store struct {
	client *s3.Client
	bucket string
}

var _ docstore.Store = (*Store)(nil)

// Config holds construction parameters.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; enables a custom endpoint such as MinIO
	AccessKeyID     string // optional; default credentials chain otherwise
	SecretAccessKey string
	PathStyle       bool
}

// New creates a store from cfg.
func New(ctx context.Context, cfg Config, optFns ...func(*s3.Options)) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}, optFns...)...)
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Driver implements docstore.Store.
func (s *Store) Driver() docstore.Driver { return docstore.DriverS3 }

// Put implements docstore.Store. Create-only semantics are emulated with a
// HEAD request first.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) (docstore.Info, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return docstore.Info{}, fmt.Errorf("%w: %s", docstore.ErrExists, key)
	}
	if !notFound(err) {
		return docstore.Info{}, err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return docstore.Info{}, err
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	}); err != nil {
		return docstore.Info{}, err
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return docstore.Info{}, err
	}
	return info(key, out.ContentLength, out.ETag, out.LastModified), nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, key string) (docstore.Info, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if notFound(err) {
			return docstore.Info{}, nil, fmt.Errorf("%w: %s", docstore.ErrNotExist, key)
		}
		return docstore.Info{}, nil, err
	}
	return info(key, out.ContentLength, out.ETag, out.LastModified), out.Body, nil
}

// List implements docstore.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]docstore.Info, error) {
	var infos []docstore.Info
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix, ContinuationToken: token})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			infos = append(infos, info(aws.ToString(obj.Key), obj.Size, obj.ETag, obj.LastModified))
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func info(key string, size *int64, etag *string, lastModified *time.Time) docstore.Info {
	lm := time.Now().UTC()
	if lastModified != nil {
		lm = *lastModified
	}
	return docstore.Info{
		Key:          key,
		Size:         aws.ToInt64(size),
		ETag:         strings.Trim(aws.ToString(etag), "\""),
		LastModified: lm,
	}
}

func notFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var missing *types.NotFound
	if errors.As(err, &missing) {
		return true
	}
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}
