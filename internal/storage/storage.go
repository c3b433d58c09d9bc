// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package storage keeps uploaded user photos on local disk or in an S3
// compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/tourbook/tourbook/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNotAnImage is returned for uploads that are not JPEG, PNG or WebP.
var ErrNotAnImage = errors.New("not an image")

var extensions = map[string]string{
	"image/jpeg": ".jpeg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PhotoStore saves user photos under a file name.
type PhotoStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) error
}

// New returns the store selected by cfg.Backend.
func New(ctx context.Context, cfg *config.StorageConfig) (PhotoStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.LocalDir)
	case "s3":
		return NewS3(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// PhotoName derives the stored file name of a user photo from its sniffed
// content type.
func PhotoName(userID int64, at time.Time, head []byte) (string, string, error) {
	contentType := http.DetectContentType(head)
	ext, ok := extensions[contentType]
	if !ok {
		return "", "", ErrNotAnImage
	}
	return fmt.Sprintf("user-%d-%d%s", userID, at.UnixMilli(), ext), contentType, nil
}

// Local stores photos in a directory.
type Local struct {
	dir string
}

// NewLocal creates the directory if needed.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Dir returns the storage directory.
func (l *Local) Dir() string {
	return l.dir
}

// Save writes the photo through a temporary file so readers never see a
// partial image.
func (l *Local) Save(_ context.Context, name, _ string, r io.Reader) error {
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid photo name %q", name)
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing photo: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(l.dir, name))
}

// S3 stores photos in a bucket under the users/ prefix.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 builds a client from static credentials. A custom endpoint switches
// to path-style addressing for MinIO and similar servers.
func NewS3(ctx context.Context, cfg *config.StorageConfig) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, bucket: cfg.S3Bucket}, nil
}

// Save uploads the photo. The body is buffered so the request can be signed.
func (s *S3) Save(ctx context.Context, name, contentType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String("users/" + name),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("uploading photo: %w", err)
	}
	return nil
}
