package staging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Veein-web/AI-Background-Remover/internal/config"
)

// ObjectArea keeps each namespace in its own bucket, keyed {owner}/{name}.
type ObjectArea struct {
	client  *minio.Client
	cfg     config.StorageConfig
	buckets map[Namespace]string
}

func NewObjectArea(cfg config.StorageConfig) (*ObjectArea, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectArea{
		client: client,
		cfg:    cfg,
		buckets: map[Namespace]string{
			Originals: cfg.BucketOriginals,
			Processed: cfg.BucketProcessed,
		},
	}, nil
}

func (a *ObjectArea) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range a.buckets {
		exists, err := a.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("bucket exists %s: %w", bucket, err)
		}
		if !exists {
			if err := a.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: a.cfg.Region}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

func (a *ObjectArea) StoreOriginal(ctx context.Context, owner, filename string, data []byte) (string, error) {
	name := SecureFilename(filename)
	if err := a.put(ctx, Originals, owner, name, data, ""); err != nil {
		return "", err
	}
	return name, nil
}

func (a *ObjectArea) StoreProcessed(ctx context.Context, owner, name string, data []byte) error {
	return a.put(ctx, Processed, owner, name, data, "image/png")
}

func (a *ObjectArea) Open(ctx context.Context, ns Namespace, owner, name string) (io.ReadCloser, error) {
	bucket, key, err := a.locate(ns, owner, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	obj, err := a.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, ns, name)
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return obj, nil
}

func (a *ObjectArea) put(ctx context.Context, ns Namespace, owner, name string, data []byte, contentType string) error {
	bucket, key, err := a.locate(ns, owner, name)
	if err != nil {
		return err
	}

	_, err = a.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (a *ObjectArea) locate(ns Namespace, owner, name string) (string, string, error) {
	if err := checkNamespace(ns); err != nil {
		return "", "", err
	}
	if err := checkName(owner); err != nil {
		return "", "", err
	}
	if err := checkName(name); err != nil {
		return "", "", err
	}
	return a.buckets[ns], objectKey(owner, name), nil
}

func objectKey(owner, name string) string {
	return owner + "/" + name
}
