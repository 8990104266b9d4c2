package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/storage"
)

// ImageService runs text-to-image generations on the diffusion backend
type ImageService struct {
	backend  client.TextToImage
	rehoster AssetRehoster
	logger   *log.Entry
}

func NewImageService(backend client.TextToImage, rehoster AssetRehoster) *ImageService {
	return &ImageService{
		backend:  backend,
		rehoster: rehoster,
		logger:   log.WithField("component", "ImageService"),
	}
}

// Generate produces images for a prompt and re-hosts each of them
func (s *ImageService) Generate(ctx context.Context, req *model.ImageGenerateRequest) (*model.ImageGenerateResponse, error) {
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "1:1"
	}
	quality := req.Quality
	if quality == "" {
		quality = string(model.QualityHD)
	}
	dims := model.ResolveDimensions(aspect, quality)

	name := req.Model
	if _, ok := model.ImageBackendModels[name]; !ok {
		name = model.DefaultImageBackendModel
	}
	key := model.ImageBackendKey(name)

	num := req.NumImages
	if num <= 0 {
		num = 1
	}

	gen, err := s.backend.GenerateImages(ctx, key, &client.BackendImageRequest{
		Prompt:    req.Prompt,
		Width:     dims.Width,
		Height:    dims.Height,
		NumImages: num,
	})
	if err != nil {
		return nil, err
	}

	images := make([]string, 0, len(gen.URLs))
	for _, u := range gen.URLs {
		if s.rehoster == nil {
			images = append(images, u)
			continue
		}
		owned, err := s.rehoster.Rehost(ctx, u, storage.FolderGeneratedImages, fmt.Sprintf("%s.png", key))
		if err != nil {
			s.logger.WithError(err).Warn("keeping backend url")
			owned = u
		}
		images = append(images, owned)
	}

	s.logger.WithFields(log.Fields{"model": key, "dimensions": dims.String(), "count": len(images)}).Info("images generated")

	return &model.ImageGenerateResponse{
		Images:     images,
		Model:      name,
		Dimensions: dims,
	}, nil
}
