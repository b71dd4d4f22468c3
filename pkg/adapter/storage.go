package adapter

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Archiver stores rendered lead transcripts for later review. Archival is a
// best-effort side effect of a fresh lead insert; failures never block the turn.
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte) error
}

// storageArchiver implements Archiver using Cloud Storage
type storageArchiver struct {
	bucketName string
	client     *storage.Client
}

// NewStorageArchiver creates a new Cloud Storage backed Archiver
func NewStorageArchiver(ctx context.Context, bucketName string) (Archiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageArchiver{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *storageArchiver) Archive(ctx context.Context, key string, data []byte) error {
	obj := s.client.Bucket(s.bucketName).Object(key)
	writer := obj.NewWriter(ctx)

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write archive object", goerr.V("key", key))
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close archive writer", goerr.V("key", key))
	}

	return nil
}
