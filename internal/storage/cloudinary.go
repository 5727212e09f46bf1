package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"docconvert/internal/domain"
	"docconvert/internal/domain/models"
)

// resourceTypeRaw stores the PDF byte-for-byte instead of as an image asset.
const resourceTypeRaw = "raw"

// uploadAPI is the subset of *uploader.API the store needs.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryStore keeps retention copies as raw Cloudinary assets.
type CloudinaryStore struct {
	api    uploadAPI
	logger *slog.Logger
}

// NewCloudinaryStore builds a store from account credentials.
func NewCloudinaryStore(cloudName, apiKey, apiSecret string, logger *slog.Logger) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	return &CloudinaryStore{api: &cld.Upload, logger: logger}, nil
}

func (s *CloudinaryStore) Name() string { return "cloudinary" }

// Put uploads data as folder/key. An existing asset with the same key is replaced.
func (s *CloudinaryStore) Put(ctx context.Context, key, folder string, data []byte) (*models.Receipt, error) {
	result, err := s.api.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     key,
		Folder:       folder,
		ResourceType: resourceTypeRaw,
	})
	if err != nil {
		return nil, &domain.StorageError{Key: key, Err: err}
	}
	if result.Error.Message != "" {
		return nil, &domain.StorageError{Key: key, Err: fmt.Errorf("cloudinary: %s", result.Error.Message)}
	}

	s.logger.Debug("cloudinary upload complete",
		"public_id", result.PublicID,
		"asset_id", result.AssetID,
		"bytes", result.Bytes,
	)

	return &models.Receipt{
		Key:    result.PublicID,
		Folder: folder,
		URL:    result.SecureURL,
		Bytes:  int64(result.Bytes),
	}, nil
}
