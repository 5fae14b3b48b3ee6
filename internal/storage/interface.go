package storage

import "context"

// MediaUploader defines the interface for uploading thread attachments
// This interface allows for easy mocking in tests
type MediaUploader interface {
	UploadMedia(ctx context.Context, data []byte, userID, originalFilename string) (*UploadResult, error)
}

// Ensure S3Uploader implements MediaUploader
var _ MediaUploader = (*S3Uploader)(nil)
