package archive

import (
	"context"
)

// ObjectStore provides an interface for cloud storage operations.
// This interface enables mocking and testing of export functionality.
type ObjectStore interface {
	// PutObject writes bytes to a storage bucket under the given object name.
	PutObject(ctx context.Context, bucketName, objectName string, data []byte) error

	// FetchObject downloads object bytes from the given storage URI.
	FetchObject(ctx context.Context, uri string) ([]byte, error)

	// ExtractFilenameFromURI extracts the filename from a storage URI.
	ExtractFilenameFromURI(uri string) string
}

// GCSObjectStore is the concrete implementation of ObjectStore
// that interacts with Google Cloud Storage.
type GCSObjectStore struct{}

// NewGCSObjectStore creates a new instance of GCSObjectStore.
func NewGCSObjectStore() *GCSObjectStore {
	return &GCSObjectStore{}
}

// PutObject delegates to the package-level PutObject function.
func (s *GCSObjectStore) PutObject(ctx context.Context, bucketName, objectName string, data []byte) error {
	return PutObject(ctx, bucketName, objectName, data)
}

// FetchObject delegates to the package-level FetchObject function.
func (s *GCSObjectStore) FetchObject(ctx context.Context, uri string) ([]byte, error) {
	return FetchObject(ctx, uri)
}

// ExtractFilenameFromURI delegates to the package-level ExtractFilenameFromURI function.
func (s *GCSObjectStore) ExtractFilenameFromURI(uri string) string {
	return ExtractFilenameFromURI(uri)
}

var _ ObjectStore = (*GCSObjectStore)(nil)
