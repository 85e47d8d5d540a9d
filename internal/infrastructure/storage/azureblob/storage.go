// Package azureblob archives uploads in an Azure Blob Storage container.
package azureblob

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/infrastructure/storage"
)

type Storage struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
}

func New(connectionString, container string, logger *slog.Logger) (*Storage, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{client: client, container: container, logger: logger.With("component", "azure-blob")}, nil
}

// EnsureContainer creates the container unless it already exists.
func (s *Storage) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", s.container, err)
	}
	s.logger.Info("storage container ready", "container", s.container)
	return nil
}

func (s *Storage) Save(ctx context.Context, key string, data io.Reader) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	contentType := storage.ContentType(key)
	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	}
	if _, err := s.client.UploadStream(ctx, s.container, key, data, opts); err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, domain.WrapError(domain.ErrNotFound, "open stored upload", err)
		}
		return nil, fmt.Errorf("download blob %s: %w", key, err)
	}
	return resp.Body, nil
}
