package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"google.golang.org/api/option"

	"github.com/hupe1980/genohdc/blobstore"
	gcsstore "github.com/hupe1980/genohdc/blobstore/gcs"
	miniostore "github.com/hupe1980/genohdc/blobstore/minio"
	s3store "github.com/hupe1980/genohdc/blobstore/s3"
	"github.com/hupe1980/genohdc/config"
	"github.com/hupe1980/genohdc/resource"
)

// openStore resolves a storage URL to a blob store. The returned close
// function releases client resources and is never nil.
func openStore(ctx context.Context, cfg config.StorageConfig, rc *resource.Controller) (blobstore.Store, func() error, error) {
	noop := func() error { return nil }

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, noop, fmt.Errorf("parse storage url: %w", err)
	}
	bucket := u.Host
	prefix := strings.TrimPrefix(u.Path, "/")

	var (
		store   blobstore.Store
		closeFn = noop
		remote  = true
	)

	switch u.Scheme {
	case "", "file":
		remote = false
		root := strings.TrimPrefix(cfg.URL, "file://")
		if root == "" {
			root = "."
		}
		store = blobstore.NewLocalStore(root)
	case "mem":
		remote = false
		store = blobstore.NewMemoryStore()
	case "s3":
		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
		store = s3store.NewStore(client, bucket, prefix)
	case "minio":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("create minio client: %w", err)
		}
		store = miniostore.NewStore(client, bucket, prefix)
	case "gcs", "gs":
		var opts []option.ClientOption
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
		}
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, noop, fmt.Errorf("create gcs client: %w", err)
		}
		store = gcsstore.NewStore(client, bucket, prefix)
		closeFn = client.Close
	default:
		return nil, noop, fmt.Errorf("unsupported storage scheme %q", u.Scheme)
	}

	if remote && cfg.CacheBytes > 0 {
		store = blobstore.NewCachingStore(store, cfg.CacheBytes, rc)
	}
	return store, closeFn, nil
}

func loadAWSConfig(ctx context.Context, cfg config.StorageConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func newDynamoClient(ctx context.Context, cfg config.StorageConfig) (*dynamodb.Client, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}
