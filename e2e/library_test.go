package e2e

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/wildmind/studio-api/internal/model"
)

func seedSet(t *testing.T, ta *testApp, id string, urls ...string) {
	t.Helper()
	set := &model.GeneratedSet{
		ID:            id,
		Category:      model.CategoryJewelry,
		OriginalImage: "https://cdn.example.com/reference/ring.png",
		UserPrompt:    "A gold ring with a single emerald stone",
		ItemType:      "ring",
		Model:         "flux-kontext-pro",
		Timestamp:     time.Now(),
	}
	for i, u := range urls {
		set.GeneratedImages = append(set.GeneratedImages, model.GeneratedImage{
			ID:   id + "-" + string(model.ShotOrder[i]),
			URL:  u,
			Type: model.ShotOrder[i],
		})
	}
	if err := ta.sets.Save(context.Background(), set); err != nil {
		t.Fatalf("failed to seed set: %v", err)
	}
}

func ownedBlob(t *testing.T, ta *testApp, key string) string {
	t.Helper()
	u, err := ta.blobs.Upload(context.Background(), key, bytes.NewReader(pngBytes()), "image/png")
	if err != nil {
		t.Fatalf("failed to upload blob: %v", err)
	}
	return u
}

func TestLibrary_ListAndGet(t *testing.T) {
	ta := setupApp(t)
	seedSet(t, ta, "set-a", ownedBlob(t, ta, "generated-images/1_a.png"))

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/library?limit=10", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["count"] != float64(1) {
		t.Errorf("expected count 1, got %v", result["count"])
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/library/set-a", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if got := parseJSON(t, resp); got["id"] != "set-a" {
		t.Errorf("expected set-a, got %v", got["id"])
	}
}

func TestLibrary_ListRejectsBadLimit(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/library?limit=5000", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestLibrary_DeleteRemovesBlobs(t *testing.T) {
	ta := setupApp(t)
	owned := ownedBlob(t, ta, "generated-images/1_b.png")
	seedSet(t, ta, "set-b", owned, "https://delivery.bfl.ai/remote.png")

	resp, err := doAuthRequest(t, ta.app, http.MethodDelete, "/api/library/set-b", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["blobsDeleted"] != float64(1) {
		t.Errorf("expected 1 blob deleted, got %v", result["blobsDeleted"])
	}
	if ta.blobs.Has("generated-images/1_b.png") {
		t.Error("expected owned blob to be removed")
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/library/set-b", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestLibrary_DeleteSurvivesBlobFailure(t *testing.T) {
	ta := setupApp(t, appOptions{failDeletes: []string{"generated-images/1_c.png"}})
	owned := ownedBlob(t, ta, "generated-images/1_c.png")
	seedSet(t, ta, "set-c", owned)

	resp, err := doAuthRequest(t, ta.app, http.MethodDelete, "/api/library/set-c", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["blobsFailed"] != float64(1) {
		t.Errorf("expected 1 failed blob, got %v", result["blobsFailed"])
	}
	if _, err := ta.sets.Get(context.Background(), "set-c"); err == nil {
		t.Error("expected set document to be deleted")
	}
}

func TestLibrary_Cleanup(t *testing.T) {
	ta := setupApp(t)
	seedSet(t, ta, "real", ownedBlob(t, ta, "generated-images/1_d.png"))
	seedSet(t, ta, "placeholder", "https://picsum.photos/seed/1/1024/1024")
	seedSet(t, ta, "empty")

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/library/cleanup", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["count"] != float64(2) {
		t.Errorf("expected 2 sets removed, got %v", result["count"])
	}
	if _, err := ta.sets.Get(context.Background(), "real"); err != nil {
		t.Errorf("expected real set to survive: %v", err)
	}
}
