package client

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmind/studio-api/internal/config"
	"github.com/wildmind/studio-api/internal/metrics"
)

func TestNormalizeGeneration(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantURL string
		source  ResultSource
		wantErr bool
	}{
		{"imageUrl wins", `{"imageUrl":"https://a/1.png","image_urls":["https://a/2.png"]}`, "https://a/1.png", SourceImageURL, false},
		{"image_urls first entry", `{"image_urls":["","https://a/2.png","https://a/3.png"]}`, "https://a/2.png", SourceImageURLs, false},
		{"result.sample", `{"result":{"sample":"https://bfl/x.png"}}`, "https://bfl/x.png", SourceResultSample, false},
		{"originalImageUrl last", `{"originalImageUrl":"https://o/x.png"}`, "https://o/x.png", SourceOriginalImageURL, false},
		{"success false", `{"success":false,"error":"nsfw"}`, "", "", true},
		{"empty", `{}`, "", "", true},
		{"bad json", `not json`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NormalizeGeneration([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, res.URL)
			assert.Equal(t, tt.source, res.Source)
		})
	}
}

func TestNormalizeGeneration_NoURL(t *testing.T) {
	_, err := NormalizeGeneration([]byte(`{"success":true}`))
	assert.ErrorIs(t, err, ErrNoImageURL)
}

func newTestFlux(t *testing.T, handler http.HandlerFunc, attempts int) *FluxClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewFluxClient(
		&config.FluxConfig{APIKey: "test-key", BaseURL: srv.URL},
		&config.GenerationConfig{FluxPollInterval: time.Millisecond, FluxPollAttempts: attempts},
		nil,
		metrics.NewNop(),
	)
}

func fluxHandler(t *testing.T, statuses ...string) http.HandlerFunc {
	var polls int32
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-key"))
		switch r.URL.Path {
		case "/flux-kontext-pro":
			var req FluxRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "1:1", req.AspectRatio)
			json.NewEncoder(w).Encode(map[string]string{
				"id":          "req-1",
				"polling_url": "http://" + r.Host + "/poll",
			})
		case "/poll":
			n := int(atomic.AddInt32(&polls, 1)) - 1
			status := statuses[len(statuses)-1]
			if n < len(statuses) {
				status = statuses[n]
			}
			resp := map[string]interface{}{"id": "req-1", "status": status}
			if status == "Ready" {
				resp["result"] = map[string]string{"sample": "https://bfl.ai/sample.png"}
			}
			json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}
}

func TestFluxGenerate_Ready(t *testing.T) {
	c := newTestFlux(t, fluxHandler(t, "Pending", "Pending", "Ready"), 10)

	res, err := c.Generate(context.Background(), &FluxRequest{Prompt: "ring on velvet", AspectRatio: "1:1", SafetyTolerance: 2})
	require.NoError(t, err)
	assert.Equal(t, "https://bfl.ai/sample.png", res.URL)
	assert.Equal(t, SourceResultSample, res.Source)
}

func TestFluxGenerate_Moderated(t *testing.T) {
	c := newTestFlux(t, fluxHandler(t, "Pending", "Content Moderated"), 10)

	_, err := c.Generate(context.Background(), &FluxRequest{Prompt: "ring", AspectRatio: "1:1"})
	assert.ErrorIs(t, err, ErrFluxModerated)
}

func TestFluxGenerate_Timeout(t *testing.T) {
	c := newTestFlux(t, fluxHandler(t, "Pending"), 3)

	_, err := c.Generate(context.Background(), &FluxRequest{Prompt: "ring", AspectRatio: "1:1"})
	assert.ErrorIs(t, err, ErrFluxTimeout)
}

func TestFluxRequest_Validate(t *testing.T) {
	assert.Error(t, (&FluxRequest{}).Validate())
	assert.Error(t, (&FluxRequest{Prompt: "x", SafetyTolerance: 7}).Validate())
	assert.Error(t, (&FluxRequest{Prompt: "x", AspectRatio: "square"}).Validate())
	assert.NoError(t, (&FluxRequest{Prompt: "x", AspectRatio: "16:9", SafetyTolerance: 2}).Validate())
}

func TestFluxGenerate_SubmitErrorTripsBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	breakers := NewBreakers(config.BreakerConfig{FailureThreshold: 2, Timeout: time.Minute}, metrics.NewNop())
	c := NewFluxClient(
		&config.FluxConfig{APIKey: "k", BaseURL: srv.URL},
		&config.GenerationConfig{FluxPollInterval: time.Millisecond, FluxPollAttempts: 1},
		breakers, metrics.NewNop(),
	)

	for i := 0; i < 3; i++ {
		_, err := c.Generate(context.Background(), &FluxRequest{Prompt: "ring"})
		assert.Error(t, err)
	}

	var apiErr *APIError
	_, err := c.Generate(context.Background(), &FluxRequest{Prompt: "ring"})
	assert.False(t, errors.As(err, &apiErr))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGroupIDFromKey(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"GroupID": "1234567"})
	signed, err := token.SignedString([]byte("whatever"))
	require.NoError(t, err)

	assert.Equal(t, "1234567", GroupIDFromKey(signed))
	assert.Equal(t, defaultGroupID, GroupIDFromKey(""))
	assert.Equal(t, defaultGroupID, GroupIDFromKey("not-a-jwt"))
}

func newTestMiniMax(t *testing.T, handler http.HandlerFunc) *MiniMaxClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMiniMaxClient(&config.MiniMaxConfig{APIKey: "mm-key", BaseURL: srv.URL, GroupID: "g1"}, nil, metrics.NewNop())
}

func TestMiniMax_VideoFlow(t *testing.T) {
	c := newTestMiniMax(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer mm-key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/video_generation":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"task_id":   "task-9",
				"base_resp": map[string]interface{}{"status_code": 0, "status_msg": "success"},
			})
		case "/query/video_generation":
			assert.Equal(t, "task-9", r.URL.Query().Get("task_id"))
			w.Write([]byte(`{"task_id":"task-9","status":"Success","file_id":"f-1","base_resp":{"status_code":0}}`))
		case "/files/retrieve":
			assert.Equal(t, "g1", r.URL.Query().Get("GroupId"))
			w.Write([]byte(`{"file":{"backup_download_url":"https://cdn/video.mp4"},"base_resp":{"status_code":0}}`))
		}
	})

	ctx := context.Background()
	taskID, err := c.SubmitVideo(ctx, &VideoRequest{Model: "MiniMax-Hailuo-02", Prompt: "a slow pan"})
	require.NoError(t, err)
	assert.Equal(t, "task-9", taskID)

	status, err := c.QueryVideo(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, "Success", status.Status)
	assert.Equal(t, "f-1", status.FileID)

	u, err := c.RetrieveFile(ctx, status.FileID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/video.mp4", u)
}

func TestMiniMax_BaseRespError(t *testing.T) {
	c := newTestMiniMax(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"base_resp":{"status_code":1004,"status_msg":"authentication failed"}}`))
	})

	_, err := c.SubmitVideo(context.Background(), &VideoRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestMiniMax_RetrieveFileNoURL(t *testing.T) {
	c := newTestMiniMax(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"file":{},"base_resp":{"status_code":0}}`))
	})

	_, err := c.RetrieveFile(context.Background(), "f-1")
	assert.ErrorIs(t, err, ErrNoDownloadURL)
}

func TestMiniMax_GenerateMusicDecodesHex(t *testing.T) {
	audio := []byte("ID3fake-mp3-bytes")
	c := newTestMiniMax(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/music_generation", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":      map[string]interface{}{"audio": hex.EncodeToString(audio), "status": 2},
			"base_resp": map[string]interface{}{"status_code": 0},
		})
	})

	got, err := c.GenerateMusic(context.Background(), &MusicRequest{Model: "music-1.5", Prompt: "lofi", Lyrics: "la la la"})
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestBackendClient_GenerateImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stable-turbo/generate", r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("ngrok-skip-browser-warning"))
		var req BackendImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.NumImages)
		w.Write([]byte(`{"image_urls":["https://x.ngrok-free.app/out.png"]}`))
	}))
	defer srv.Close()

	c := NewBackendClient(&config.BackendConfig{BaseURL: srv.URL}, nil, metrics.NewNop())
	res, err := c.GenerateImages(context.Background(), "stable-turbo", &BackendImageRequest{Prompt: "a cat", Width: 512, Height: 512})
	require.NoError(t, err)
	assert.Equal(t, "https://x.ngrok-free.app/out.png", res.URL)
}

func TestDownloader_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	d := NewDownloader(5 * time.Second)

	got, err := d.Fetch(context.Background(), srv.URL+"/img.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), got.Body)
	assert.Equal(t, "image/png", got.ContentType)

	_, err = d.Fetch(context.Background(), srv.URL+"/missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
