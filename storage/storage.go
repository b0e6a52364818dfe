// Package storage defines the attachment object store used by the to-do service.
package storage

import "context"

// AttachmentStorage issues URLs for attachment objects and removes them
type AttachmentStorage interface {
	// GetUploadURL returns a time-limited URL a client can PUT the object to
	GetUploadURL(ctx context.Context, attachmentID string) (string, error)

	// GetDownloadURL returns the stable URL of the object
	GetDownloadURL(attachmentID string) string

	DeleteAttachment(ctx context.Context, attachmentID string) error
}
