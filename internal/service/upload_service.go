package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/storage"
)

// MaxReferenceSize is the largest accepted reference image
const MaxReferenceSize = 10 * 1024 * 1024 // 10MB

var referenceTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadService stores user reference images in owned storage
type UploadService struct {
	blobs  storage.BlobStore
	now    func() time.Time
	logger *log.Entry
}

func NewUploadService(blobs storage.BlobStore) *UploadService {
	return &UploadService{
		blobs:  blobs,
		now:    time.Now,
		logger: log.WithField("component", "UploadService"),
	}
}

// UploadReference checks type and size, then stores the image under
// reference-images/. The content type is sniffed from the bytes when the
// declared one is missing or generic.
func (s *UploadService) UploadReference(ctx context.Context, filename, declaredType string, file io.Reader, size int64) (*model.UploadResponse, error) {
	if size > MaxReferenceSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, MaxReferenceSize)
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxReferenceSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxReferenceSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, MaxReferenceSize)
	}

	contentType := declaredType
	if !referenceTypes[contentType] {
		contentType = http.DetectContentType(data)
	}
	if !referenceTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	now := s.now()
	key := storage.BuildKey(storage.FolderReferenceImages, filename, now)
	url, err := s.blobs.Upload(ctx, key, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload reference image: %w", err)
	}

	s.logger.WithFields(log.Fields{"key": key, "bytes": len(data)}).Info("reference image uploaded")

	return &model.UploadResponse{
		URL:         url,
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  now,
	}, nil
}
