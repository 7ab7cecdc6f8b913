package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <name> <image>",
	Short: "Register a new user from a photo",
	Long: `Register a user by name from a photo containing their face.
The photo is validated, encoded with the active method and copied to the
upload folder.

Examples:
  face-detection register "Jane Doe" jane.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if int64(len(data)) > a.cfg.Uploads.MaxSize {
		return fmt.Errorf("image too large: %d bytes (max %d)", len(data), a.cfg.Uploads.MaxSize)
	}

	reg, err := a.service.Register(ctx, name, data, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Printf("Registered %q (id %d) using %s encoding\n", reg.Name, reg.ID, reg.Variant)
	fmt.Printf("Image stored as %s\n", reg.ImagePath)
	return nil
}
