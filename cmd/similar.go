package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-detection/internal/constants"
)

var similarCmd = &cobra.Command{
	Use:   "similar <name>",
	Short: "List the registered users closest to a user",
	Long: `List the registered users whose stored encodings are closest to the
given user's, nearest first. Users marked as within tolerance could be
recognized as each other.

Examples:
  face-detection similar "Jan Novak"
  face-detection similar Alice --limit 10 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().Int("limit", constants.DefaultSimilarLimit, "Maximum number of users to list")
	similarCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")
	if limit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", limit)
	}
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.service.Similar(ctx, args[0], limit)
	if err != nil {
		return fmt.Errorf("similar failed: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return printJSON(resp)
	}

	if len(resp.Neighbors) == 0 {
		fmt.Printf("No other users registered with method %s\n", resp.Method)
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDISTANCE\tWITHIN TOLERANCE")
	for _, n := range resp.Neighbors {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%t\n", n.ID, n.Name, n.Distance, n.WithinTolerance)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Printf("\nmethod %s, tolerance %g\n", resp.Method, resp.Tolerance)
	return nil
}
