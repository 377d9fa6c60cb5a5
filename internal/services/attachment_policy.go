package services

import (
	"context"
	"strings"

	"devlense/internal/config"
	"devlense/internal/models"
	"devlense/internal/observability"
	contextutils "devlense/internal/utils"
)

// AttachmentPolicy decides whether an attachment may be uploaded. It looks at
// the declared size and type only, so it runs before any network call.
type AttachmentPolicy struct {
	MaxBytes int64
}

// NewAttachmentPolicy falls back to the 5 MB limit for a non-positive maxBytes
func NewAttachmentPolicy(maxBytes int64) AttachmentPolicy {
	if maxBytes <= 0 {
		maxBytes = config.MaxAttachmentBytes
	}
	return AttachmentPolicy{MaxBytes: maxBytes}
}

// Validate checks size first, then the declared media type. A nil attachment is valid.
func (p AttachmentPolicy) Validate(ctx context.Context, a *models.Attachment) error {
	if a == nil {
		return nil
	}
	observability.GetInstruments().RecordAttachment(ctx, a.Size, a.ContentType)

	if a.Size > p.MaxBytes {
		return contextutils.WrapErrorf(contextutils.ErrAttachmentTooLarge, "attachment is %d bytes, limit is %d", a.Size, p.MaxBytes)
	}
	if !IsImageType(a.ContentType) {
		return contextutils.WrapErrorf(contextutils.ErrAttachmentType, "declared type %q is not an image", a.ContentType)
	}
	return nil
}

// IsImageType reports whether a declared media type is image/*
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
