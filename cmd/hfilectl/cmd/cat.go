package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/javi11/hfile"
)

func init() {
	catCmd := &cobra.Command{
		Use:   "cat <url>",
		Short: "Stream a single hStream URL to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  runCat,
	}
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	url := args[0]

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := hfile.OpenContext(ctx, url, hfile.ModeRead,
		hfile.WithBufferSize(cfg.BufferSize), hfile.WithHTTPConfig(cfg.HTTP))
	if err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	defer s.Close()

	if _, err := io.Copy(os.Stdout, s); err != nil {
		return fmt.Errorf("stream %s: %w", url, err)
	}
	return nil
}
