package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-detection/internal/constants"
	"github.com/kozaktomas/face-detection/internal/recognizer"
)

var reencodeCmd = &cobra.Command{
	Use:   "reencode [name]",
	Short: "Recompute stored face encodings with the active method",
	Long: `Recompute stored face encodings from the stored images.

Users registered with another method are skipped during recognition. Run this
after switching between histogram and embedding encodings to migrate them.

Examples:
  # Migrate every user stored with another method
  face-detection reencode --all

  # Recompute everyone, 8 workers
  face-detection reencode --all --force --workers 8

  # Recompute a single user
  face-detection reencode "Jane Doe"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReencode,
}

func init() {
	rootCmd.AddCommand(reencodeCmd)

	reencodeCmd.Flags().Bool("all", false, "Re-encode all users")
	reencodeCmd.Flags().Bool("force", false, "Also re-encode users already on the active method")
	reencodeCmd.Flags().Int("workers", constants.WorkerPoolSize, "Number of parallel workers")
}

func runReencode(cmd *cobra.Command, args []string) error {
	all := mustGetBool(cmd, "all")
	force := mustGetBool(cmd, "force")
	workers := mustGetInt(cmd, "workers")

	if all == (len(args) == 1) {
		return errors.New("specify either a user name or --all")
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !all {
		if err := a.service.Reencode(ctx, args[0]); err != nil {
			return fmt.Errorf("re-encode failed: %w", err)
		}
		fmt.Printf("Re-encoded %q with %s\n", args[0], a.service.Method())
		return nil
	}

	identities, err := a.service.Users(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	pending := 0
	for _, id := range identities {
		if force || id.Variant != a.service.Method() {
			pending++
		}
	}
	if pending == 0 {
		fmt.Printf("All %d users already use %s encodings\n", len(identities), a.service.Method())
		return nil
	}

	bar := progressbar.NewOptions(pending,
		progressbar.OptionSetDescription("Re-encoding users"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("users"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var failed []recognizer.ReencodeResult
	var mu sync.Mutex
	total, err := a.service.ReencodeAll(ctx, force, workers, func(r recognizer.ReencodeResult) {
		if r.Err != nil {
			mu.Lock()
			failed = append(failed, r)
			mu.Unlock()
		}
		_ = bar.Add(1)
	})
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("\nCompleted: %d users re-encoded, %d errors\n", total-len(failed), len(failed))
	for _, r := range failed {
		fmt.Printf("  %s: %v\n", r.Name, r.Err)
	}
	return nil
}
