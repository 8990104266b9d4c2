package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/storage"
)

const (
	MusicModel = "music-1.5"

	defaultSampleRate = 44100
	defaultBitrate    = 256000
	defaultFormat     = "mp3"
)

// MusicService generates a track and stores the audio
type MusicService struct {
	provider client.MusicProvider
	blobs    storage.BlobStore
	now      func() time.Time
	logger   *log.Entry
}

func NewMusicService(provider client.MusicProvider, blobs storage.BlobStore) *MusicService {
	return &MusicService{
		provider: provider,
		blobs:    blobs,
		now:      time.Now,
		logger:   log.WithField("component", "MusicService"),
	}
}

func (s *MusicService) Generate(ctx context.Context, req *model.MusicGenerateRequest) (*model.MusicGenerateResponse, error) {
	setting := client.AudioSetting{
		SampleRate: req.SampleRate,
		Bitrate:    req.Bitrate,
		Format:     req.Format,
	}
	if setting.SampleRate == 0 {
		setting.SampleRate = defaultSampleRate
	}
	if setting.Bitrate == 0 {
		setting.Bitrate = defaultBitrate
	}
	if setting.Format == "" {
		setting.Format = defaultFormat
	}

	audio, err := s.provider.GenerateMusic(ctx, &client.MusicRequest{
		Model:        MusicModel,
		Prompt:       req.Prompt,
		Lyrics:       req.Lyrics,
		AudioSetting: setting,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	name := "music." + setting.Format
	key := storage.BuildKey(storage.FolderGeneratedMusic, name, now)
	url, err := s.blobs.Upload(ctx, key, bytes.NewReader(audio), storage.ContentTypeFor(name))
	if err != nil {
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	s.logger.WithFields(log.Fields{"key": key, "bytes": len(audio)}).Info("music generated")

	return &model.MusicGenerateResponse{
		AudioURL:  url,
		Format:    setting.Format,
		SizeBytes: len(audio),
		CreatedAt: now,
	}, nil
}
