package client

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wildmind/studio-api/internal/config"
	"github.com/wildmind/studio-api/internal/metrics"
)

const ProviderMiniMax = "minimax"

const defaultGroupID = "default_group"

var ErrNoDownloadURL = errors.New("minimax file has no download url")

// VideoProvider defines the three-step asynchronous video protocol
type VideoProvider interface {
	SubmitVideo(ctx context.Context, req *VideoRequest) (string, error)
	QueryVideo(ctx context.Context, taskID string) (*VideoTaskStatus, error)
	RetrieveFile(ctx context.Context, fileID string) (string, error)
}

// MusicProvider generates audio from a prompt and lyrics
type MusicProvider interface {
	GenerateMusic(ctx context.Context, req *MusicRequest) ([]byte, error)
}

// MiniMaxClient implements VideoProvider and MusicProvider for the MiniMax API
type MiniMaxClient struct {
	api      apiClient
	apiKey   string
	groupID  string
	breakers *Breakers
}

// VideoRequest is the body of POST /video_generation
type VideoRequest struct {
	Model            string             `json:"model"`
	Prompt           string             `json:"prompt,omitempty"`
	Duration         int                `json:"duration,omitempty"`
	Resolution       string             `json:"resolution,omitempty"`
	PromptOptimizer  bool               `json:"prompt_optimizer"`
	AspectRatio      string             `json:"aspect_ratio,omitempty"`
	FirstFrameImage  string             `json:"first_frame_image,omitempty"`
	SubjectReference []SubjectReference `json:"subject_reference,omitempty"`
}

// SubjectReference is a character reference for S2V models
type SubjectReference struct {
	Type  string   `json:"type"`
	Image []string `json:"image"`
}

// VideoTaskStatus is one answer of the status endpoint
type VideoTaskStatus struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	FileID string `json:"file_id"`
}

// MusicRequest is the body of POST /music_generation
type MusicRequest struct {
	Model        string       `json:"model"`
	Prompt       string       `json:"prompt"`
	Lyrics       string       `json:"lyrics"`
	AudioSetting AudioSetting `json:"audio_setting"`
}

// AudioSetting controls the encoded output
type AudioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
}

type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

func (b baseResp) err() error {
	if b.StatusCode != 0 {
		return fmt.Errorf("minimax error %d: %s", b.StatusCode, b.StatusMsg)
	}
	return nil
}

// NewMiniMaxClient creates a new MiniMax API client
func NewMiniMaxClient(cfg *config.MiniMaxConfig, breakers *Breakers, m *metrics.Metrics) *MiniMaxClient {
	api := newAPIClient(ProviderMiniMax, cfg.BaseURL, 120*time.Second, m)
	apiKey := cfg.APIKey
	api.authorize = func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+apiKey) }

	groupID := cfg.GroupID
	if groupID == "" {
		groupID = GroupIDFromKey(apiKey)
	}

	return &MiniMaxClient{
		api:      api,
		apiKey:   apiKey,
		groupID:  groupID,
		breakers: breakers,
	}
}

// GroupIDFromKey reads the GroupID claim from a MiniMax API key. The key is a
// JWT issued by MiniMax; its signature is not ours to verify.
func GroupIDFromKey(apiKey string) string {
	if apiKey == "" {
		return defaultGroupID
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(apiKey, claims); err != nil {
		return defaultGroupID
	}
	if id, ok := claims["GroupID"].(string); ok && id != "" {
		return id
	}
	return defaultGroupID
}

// IsConfigured returns true if the client has valid configuration
func (c *MiniMaxClient) IsConfigured() bool {
	return c.apiKey != ""
}

// SubmitVideo starts a video task and returns its task id
func (c *MiniMaxClient) SubmitVideo(ctx context.Context, req *VideoRequest) (string, error) {
	var result struct {
		TaskID   string   `json:"task_id"`
		BaseResp baseResp `json:"base_resp"`
	}
	err := c.breakers.Execute(ProviderMiniMax, func() error {
		_, err := c.api.post(ctx, "/video_generation", req, &result)
		return err
	})
	if err != nil {
		return "", err
	}
	if err := result.BaseResp.err(); err != nil {
		return "", err
	}
	if result.TaskID == "" {
		return "", errors.New("minimax returned no task_id")
	}
	return result.TaskID, nil
}

// QueryVideo returns the current status of a video task
func (c *MiniMaxClient) QueryVideo(ctx context.Context, taskID string) (*VideoTaskStatus, error) {
	var result struct {
		VideoTaskStatus
		BaseResp baseResp `json:"base_resp"`
	}
	endpoint := "/query/video_generation?task_id=" + url.QueryEscape(taskID)
	if _, err := c.api.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	if err := result.BaseResp.err(); err != nil {
		return nil, err
	}
	status := result.VideoTaskStatus
	if status.TaskID == "" {
		status.TaskID = taskID
	}
	return &status, nil
}

// RetrieveFile resolves a file id to a download URL
func (c *MiniMaxClient) RetrieveFile(ctx context.Context, fileID string) (string, error) {
	var result struct {
		File struct {
			DownloadURL       string `json:"download_url"`
			BackupDownloadURL string `json:"backup_download_url"`
		} `json:"file"`
		BaseResp baseResp `json:"base_resp"`
	}
	endpoint := fmt.Sprintf("/files/retrieve?GroupId=%s&file_id=%s", url.QueryEscape(c.groupID), url.QueryEscape(fileID))
	if _, err := c.api.get(ctx, endpoint, &result); err != nil {
		return "", err
	}
	if err := result.BaseResp.err(); err != nil {
		return "", err
	}

	if result.File.DownloadURL != "" {
		return result.File.DownloadURL, nil
	}
	if result.File.BackupDownloadURL != "" {
		return result.File.BackupDownloadURL, nil
	}
	return "", ErrNoDownloadURL
}

// GenerateMusic creates a track and returns the decoded audio bytes
func (c *MiniMaxClient) GenerateMusic(ctx context.Context, req *MusicRequest) ([]byte, error) {
	var result struct {
		Data struct {
			Audio  string `json:"audio"`
			Status int    `json:"status"`
		} `json:"data"`
		BaseResp baseResp `json:"base_resp"`
	}

	started := time.Now()
	err := c.breakers.Execute(ProviderMiniMax, func() error {
		_, err := c.api.post(ctx, "/music_generation", req, &result)
		return err
	})
	if c.api.metrics != nil {
		c.api.metrics.GenerationDuration.WithLabelValues(ProviderMiniMax + "_music").Observe(time.Since(started).Seconds())
	}
	if err != nil {
		return nil, err
	}
	if err := result.BaseResp.err(); err != nil {
		return nil, err
	}
	if result.Data.Audio == "" {
		return nil, errors.New("minimax returned no audio")
	}

	audio, err := hex.DecodeString(result.Data.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}
	return audio, nil
}
