// Package storage wraps the external blob storage collaborator that
// turns message attachments into retrievable URLs.
package storage

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader accepts a file upload and returns a retrievable URL.
type Uploader interface {
	UploadFromHeader(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error)
}

// CloudinaryUploader is the production Uploader.
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader constructs a CloudinaryUploader.
func NewCloudinaryUploader(cloudName, apiKey, apiSecret string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld}, nil
}

// UploadFromHeader uploads a multipart file and returns its secure URL.
func (u *CloudinaryUploader) UploadFromHeader(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	result, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("upload to cloudinary: %w", err)
	}
	return result.SecureURL, nil
}
