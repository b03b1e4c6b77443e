package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3BlobStore persists blobs in an S3 bucket. Blob metadata rides along as
// object metadata so no extra table is needed.
type S3BlobStore struct {
	client *s3.Client
	bucket string
}

// NewS3BlobStore builds an S3-backed store from the ambient AWS config.
// UsePathStyle keeps it compatible with localstack/minio endpoints.
func NewS3BlobStore(ctx context.Context, bucket string) (*S3BlobStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	})

	return &S3BlobStore{client: client, bucket: bucket}, nil
}

func (s *S3BlobStore) Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	if err := ValidateUpload(meta); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)

	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &meta.ID,
		Body:        bytes.NewReader(data),
		ContentType: &meta.ContentType,
		ACL:         types.ObjectCannedACLPrivate,
		Metadata:    encodeMeta(meta),
	})
	if err != nil {
		return nil, fmt.Errorf("putting object %s: %w", meta.ID, err)
	}

	out := meta
	return &out, nil
}

func (s *S3BlobStore) Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &id,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("getting object %s: %w", id, err)
	}

	meta := decodeMeta(id, resp.Metadata)
	if resp.ContentType != nil {
		meta.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		meta.Size = *resp.ContentLength
	}
	return resp.Body, meta, nil
}

func (s *S3BlobStore) Delete(ctx context.Context, id string) error {
	if _, err := s.GetMetadata(ctx, id); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &id,
	})
	if err != nil {
		return fmt.Errorf("deleting object %s: %w", id, err)
	}
	return nil
}

func (s *S3BlobStore) GetMetadata(ctx context.Context, id string) (*BlobMetadata, error) {
	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &id,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("heading object %s: %w", id, err)
	}

	meta := decodeMeta(id, resp.Metadata)
	if resp.ContentType != nil {
		meta.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		meta.Size = *resp.ContentLength
	}
	return meta, nil
}

func encodeMeta(meta BlobMetadata) map[string]string {
	return map[string]string{
		"file-name":  meta.FileName,
		"owner-id":   meta.OwnerID,
		"category":   meta.Category,
		"hash":       meta.Hash,
		"created-at": meta.CreatedAt.Format(time.RFC3339),
		"created-by": meta.CreatedBy,
	}
}

func decodeMeta(id string, m map[string]string) *BlobMetadata {
	meta := &BlobMetadata{
		ID:        id,
		FileName:  m["file-name"],
		OwnerID:   m["owner-id"],
		Category:  m["category"],
		Hash:      m["hash"],
		CreatedBy: m["created-by"],
	}
	if t, err := time.Parse(time.RFC3339, m["created-at"]); err == nil {
		meta.CreatedAt = t
	}
	return meta
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
