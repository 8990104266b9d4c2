package service

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/metrics"
	"github.com/wildmind/studio-api/internal/model"
	"github.com/wildmind/studio-api/internal/storage"
	"github.com/wildmind/studio-api/internal/store"
)

// maintenanceScanLimit bounds how many sets one cleanup or migration pass reads
const maintenanceScanLimit = 1000

var placeholderMarkers = []string{"picsum.photos", "placeholder"}

// LibraryService manages persisted GeneratedSets and the blobs they point at
type LibraryService struct {
	sets     store.SetRepository
	blobs    storage.BlobStore
	rehoster AssetRehoster
	metrics  *metrics.Metrics
	logger   *log.Entry
}

func NewLibraryService(sets store.SetRepository, blobs storage.BlobStore, rehoster AssetRehoster, m *metrics.Metrics) *LibraryService {
	return &LibraryService{
		sets:     sets,
		blobs:    blobs,
		rehoster: rehoster,
		metrics:  m,
		logger:   log.WithField("component", "LibraryService"),
	}
}

// Save assigns an id and stores the set
func (s *LibraryService) Save(ctx context.Context, set *model.GeneratedSet) error {
	return s.sets.Save(ctx, set)
}

// List returns sets newest first
func (s *LibraryService) List(ctx context.Context, limit int) ([]model.GeneratedSet, error) {
	return s.sets.List(ctx, limit)
}

func (s *LibraryService) Get(ctx context.Context, id string) (*model.GeneratedSet, error) {
	return s.sets.Get(ctx, id)
}

// Delete removes the blobs a set owns, then the set itself. Blob failures are
// logged and reported but never block the document delete.
func (s *LibraryService) Delete(ctx context.Context, id string) (*model.DeleteSetResponse, error) {
	set, err := s.sets.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &model.DeleteSetResponse{ID: id}
	logger := s.logger.WithField("setId", id)

	urls := append(set.ImageURLs(), set.OriginalImage)
	for _, u := range urls {
		if u == "" || !s.blobs.Owns(u) {
			continue
		}
		if err := s.deleteBlob(ctx, u); err != nil {
			logger.WithError(err).Warnf("failed to delete blob %s", u)
			resp.BlobsFailed++
			resp.FailedBlobURL = append(resp.FailedBlobURL, u)
			continue
		}
		resp.BlobsDeleted++
	}

	if err := s.sets.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete set: %w", err)
	}

	resp.Success = true
	logger.WithFields(log.Fields{"deleted": resp.BlobsDeleted, "failed": resp.BlobsFailed}).Info("set deleted")
	return resp, nil
}

func (s *LibraryService) deleteBlob(ctx context.Context, rawURL string) error {
	key, err := storage.ObjectKeyFromURL(rawURL)
	if err != nil {
		s.countBlob("delete", "error")
		return err
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.countBlob("delete", "error")
		return err
	}
	s.countBlob("delete", "ok")
	return nil
}

// IsPlaceholderSet reports whether a set has nothing real to show: no images
// or only placeholder URLs. Failed generation records are kept.
func IsPlaceholderSet(set *model.GeneratedSet) bool {
	if set.Failed {
		return false
	}
	if len(set.GeneratedImages) == 0 {
		return true
	}
	for _, u := range set.ImageURLs() {
		if !isPlaceholderURL(u) {
			return false
		}
	}
	return true
}

func isPlaceholderURL(u string) bool {
	if strings.TrimSpace(u) == "" {
		return true
	}
	lower := strings.ToLower(u)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Cleanup deletes placeholder sets
func (s *LibraryService) Cleanup(ctx context.Context) (*model.CleanupResponse, error) {
	sets, err := s.sets.List(ctx, maintenanceScanLimit)
	if err != nil {
		return nil, err
	}

	resp := &model.CleanupResponse{Removed: []string{}}
	for i := range sets {
		if !IsPlaceholderSet(&sets[i]) {
			continue
		}
		if _, err := s.Delete(ctx, sets[i].ID); err != nil {
			s.logger.WithError(err).Warnf("cleanup could not remove %s", sets[i].ID)
			continue
		}
		resp.Removed = append(resp.Removed, sets[i].ID)
	}
	resp.Count = len(resp.Removed)

	s.logger.Infof("cleanup removed %d placeholder sets", resp.Count)
	return resp, nil
}

// Migrate re-hosts the images of sets not yet in owned storage
func (s *LibraryService) Migrate(ctx context.Context) (*model.MigrationResponse, error) {
	sets, err := s.sets.List(ctx, maintenanceScanLimit)
	if err != nil {
		return nil, err
	}

	resp := &model.MigrationResponse{}
	for i := range sets {
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		set := &sets[i]
		if set.StoredInFirebase || set.Failed || IsPlaceholderSet(set) {
			resp.Skipped++
			continue
		}

		if s.migrateSet(ctx, set) {
			resp.Migrated++
		} else {
			resp.Failed++
		}
	}

	s.logger.WithFields(log.Fields{
		"migrated": resp.Migrated,
		"failed":   resp.Failed,
		"skipped":  resp.Skipped,
	}).Info("migration pass finished")
	return resp, nil
}

func (s *LibraryService) migrateSet(ctx context.Context, set *model.GeneratedSet) bool {
	logger := s.logger.WithField("setId", set.ID)
	allOwned := true

	for j := range set.GeneratedImages {
		img := &set.GeneratedImages[j]
		if s.blobs.Owns(img.URL) {
			continue
		}
		name := fmt.Sprintf("%s-%s.jpg", set.Category, img.Type)
		owned, err := s.rehoster.Rehost(ctx, img.URL, storage.FolderGeneratedImages, name)
		if err != nil {
			logger.WithError(err).Warnf("could not migrate image %s", img.ID)
			allOwned = false
			continue
		}
		img.URL = owned
	}

	set.StoredInFirebase = allOwned
	if err := s.sets.Update(ctx, set); err != nil {
		logger.WithError(err).Error("failed to save migrated set")
		return false
	}
	return allOwned
}

// Orphans lists blob keys under folder that no stored set references.
func (s *LibraryService) Orphans(ctx context.Context, folder string) ([]string, error) {
	keys, err := s.blobs.ListKeys(ctx, strings.Trim(folder, "/")+"/")
	if err != nil {
		return nil, err
	}

	sets, err := s.sets.List(ctx, maintenanceScanLimit)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool)
	for i := range sets {
		for _, u := range append(sets[i].ImageURLs(), sets[i].OriginalImage) {
			if !s.blobs.Owns(u) {
				continue
			}
			if key, err := storage.ObjectKeyFromURL(u); err == nil {
				referenced[key] = true
			}
		}
	}

	var orphans []string
	for _, k := range keys {
		if !referenced[k] {
			orphans = append(orphans, k)
		}
	}
	return orphans, nil
}

// DeleteKeys removes blobs by key and returns how many were deleted.
func (s *LibraryService) DeleteKeys(ctx context.Context, keys []string) int {
	deleted := 0
	for _, k := range keys {
		if err := s.blobs.Delete(ctx, k); err != nil {
			s.countBlob("delete", "error")
			s.logger.WithError(err).Warnf("failed to delete %s", k)
			continue
		}
		s.countBlob("delete", "ok")
		deleted++
	}
	return deleted
}

func (s *LibraryService) countBlob(op, status string) {
	if s.metrics != nil {
		s.metrics.BlobOperationsTotal.WithLabelValues(op, status).Inc()
	}
}
