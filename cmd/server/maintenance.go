package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wildmind/studio-api/internal/storage"
)

var (
	cleanupOrphans bool
	cleanupDryRun  bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate-images",
	Short: "Copy provider hosted images of stored sets into owned storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a := newApp(ctx, cfg)
		defer a.Close()

		if !a.blobsStored {
			return fmt.Errorf("blob storage is not configured")
		}

		res, err := a.library.Migrate(ctx)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"migrated": res.Migrated,
			"failed":   res.Failed,
			"skipped":  res.Skipped,
		}).Info("Migration finished")
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove placeholder sets and, optionally, unreferenced blobs",
	Long: `Deletes sets whose images are all placeholders or missing.
With --orphans, also lists generated-images blobs that no set references
and deletes them unless --dry-run is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a := newApp(ctx, cfg)
		defer a.Close()

		res, err := a.library.Cleanup(ctx)
		if err != nil {
			return err
		}
		log.Infof("Removed %d placeholder sets", res.Count)

		if !cleanupOrphans {
			return nil
		}

		keys, err := a.library.Orphans(ctx, storage.FolderGeneratedImages)
		if err != nil {
			return err
		}
		for _, key := range keys {
			log.WithField("key", key).Info("Orphaned blob")
		}
		if cleanupDryRun {
			log.Infof("Dry run: %d orphaned blobs left in place", len(keys))
			return nil
		}

		deleted := a.library.DeleteKeys(ctx, keys)
		log.Infof("Deleted %d of %d orphaned blobs", deleted, len(keys))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().BoolVar(&cleanupOrphans, "orphans", false, "Also delete blobs that no set references")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "List orphaned blobs without deleting them")
}
