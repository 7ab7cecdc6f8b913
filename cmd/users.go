package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List registered users",
	Long: `List registered users in registration order.

Examples:
  face-detection users
  face-detection users --filter novak
  face-detection users --json`,
	Args: cobra.NoArgs,
	RunE: runUsers,
}

func init() {
	rootCmd.AddCommand(usersCmd)

	usersCmd.Flags().String("filter", "", "Only show users whose name contains this text (accent insensitive)")
	usersCmd.Flags().Bool("json", false, "Output as JSON")
}

type userRow struct {
	ID        int64  `json:"user_id"`
	Name      string `json:"name"`
	Method    string `json:"method"`
	ImagePath string `json:"image_path"`
	CreatedAt string `json:"created_at"`
}

func runUsers(cmd *cobra.Command, args []string) error {
	filter := mustGetString(cmd, "filter")
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	identities, err := a.service.Users(ctx)
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}

	rows := make([]userRow, 0, len(identities))
	for _, id := range identities {
		if !facematch.NameContains(id.Name, filter) {
			continue
		}
		rows = append(rows, userRow{
			ID:        id.ID,
			Name:      id.Name,
			Method:    id.Variant,
			ImagePath: id.ImagePath,
			CreatedAt: id.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"users":                   rows,
			"total_count":             len(rows),
			"face_recognition_method": a.service.Method(),
		})
	}

	if len(rows) == 0 {
		fmt.Println("No users registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMETHOD\tREGISTERED")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Name, r.Method, r.CreatedAt)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Printf("\n%d users, active method: %s\n", len(rows), a.service.Method())
	return nil
}
