package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"filedrop/internal/blobstore"
	"filedrop/internal/config"
	"filedrop/internal/server"
	"filedrop/internal/store"
)

func newSweepCmd(cfg *config.Config) *cobra.Command {
	var apply bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile the storage directory against file metadata",
		Long: `Sweep compares blobs on disk with metadata records. Orphaned blobs
(bytes written but never committed to metadata, typically after a crash
mid-upload) are reported and deleted with --apply. Records whose bytes are
missing are reported but never removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			blobs, err := blobstore.NewLocal(cfg.StorageRoot)
			if err != nil {
				return err
			}

			files := server.NewFileService(st, blobs, slog.Default().With("component", "sweep"))
			result, err := files.Sweep(cmd.Context(), apply)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Printf("orphaned blobs: %d\n", len(result.OrphanedBlobs))
			for _, key := range result.OrphanedBlobs {
				fmt.Printf("  %s\n", key)
			}
			fmt.Printf("orphaned records: %d\n", len(result.OrphanedRecords))
			for _, key := range result.OrphanedRecords {
				fmt.Printf("  %s\n", key)
			}
			if result.DryRun {
				fmt.Printf("reclaimable bytes: %d (dry run; pass --apply to delete orphaned blobs)\n", result.ReclaimedBytes)
			} else {
				fmt.Printf("deleted: %d, failed: %d, reclaimed bytes: %d\n",
					result.DeletedCount, result.FailedCount, result.ReclaimedBytes)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "delete orphaned blobs instead of only reporting them")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	return cmd
}
