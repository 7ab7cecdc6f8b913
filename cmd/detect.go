package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Detect faces in an image and recognize the person",
	Long: `Detect faces in a local image file and match the face against
registered users. Prints the same JSON document as POST /api/v1/detect.

Examples:
  face-detection detect group.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.files.AllowedFile(args[0]) {
		return fmt.Errorf("invalid file format: %s", args[0])
	}

	resp, err := a.service.Detect(ctx, data)
	if err != nil {
		return fmt.Errorf("detect failed: %w", err)
	}
	return printJSON(resp)
}
