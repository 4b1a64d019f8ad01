package storage

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/reqanalyzer/internal/domain/rag"
)

// Store reads reference documents for the RAG workspace from a MinIO bucket.
// Object modtimes drive the tracker's incremental sync.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, prefix, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region, prefix: prefix}, nil
}

// List returns metadata for every reference document under the prefix.
// Content is left empty; the tracker fetches only what it needs to upload.
func (s *Store) List(ctx context.Context) ([]rag.ReferenceDocument, error) {
	var docs []rag.ReferenceDocument
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		docs = append(docs, rag.ReferenceDocument{
			Name:     obj.Key,
			Modified: obj.LastModified,
		})
	}
	return docs, nil
}

// Fetch downloads one reference document.
func (s *Store) Fetch(ctx context.Context, name string) (rag.ReferenceDocument, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, name, minio.GetObjectOptions{})
	if err != nil {
		return rag.ReferenceDocument{}, err
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		return rag.ReferenceDocument{}, err
	}
	stat, err := obj.Stat()
	if err != nil {
		return rag.ReferenceDocument{}, err
	}
	return rag.ReferenceDocument{Name: name, Content: content, Modified: stat.LastModified}, nil
}
