package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/javi11/hfile"
)

var copyConcurrency int

func init() {
	copyCmd := &cobra.Command{
		Use:   "copy <src=dst> [src=dst...]",
		Short: "Copy one or more hStream URL pairs concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCopy,
	}
	copyCmd.Flags().IntVar(&copyConcurrency, "concurrency", 4, "maximum concurrent transfers")
	rootCmd.AddCommand(copyCmd)
}

type copyPair struct {
	src, dst string
}

func parseCopyPairs(args []string) ([]copyPair, error) {
	pairs := make([]copyPair, 0, len(args))
	for _, a := range args {
		src, dst, ok := splitPair(a)
		if !ok {
			return nil, fmt.Errorf("invalid pair %q, expected src=dst", a)
		}
		pairs = append(pairs, copyPair{src: src, dst: dst})
	}
	return pairs, nil
}

func splitPair(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// runCopy copies each src=dst pair independently with bounded concurrency.
// Unlike the single-stream hfile.Stream, which is deliberately
// single-threaded end to end, batching many independent transfers is an
// embarrassingly parallel CLI concern, so it uses errgroup here instead of
// inside the stream layer itself.
func runCopy(cmd *cobra.Command, args []string) error {
	pairs, err := parseCopyPairs(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)

	for _, p := range pairs {
		p := p
		g.Go(func() error {
			return copyOne(ctx, p.src, p.dst)
		})
	}
	return g.Wait()
}

func copyOne(ctx context.Context, src, dst string) error {
	slog.InfoContext(ctx, "copying stream", "src", src, "dst", dst)

	r, err := hfile.OpenContext(ctx, src, hfile.ModeRead,
		hfile.WithBufferSize(cfg.BufferSize), hfile.WithHTTPConfig(cfg.HTTP))
	if err != nil {
		return fmt.Errorf("open source %s: %w", src, err)
	}
	defer r.Close()

	w, err := hfile.OpenContext(ctx, dst, hfile.ModeWrite, hfile.WithBufferSize(cfg.BufferSize))
	if err != nil {
		return fmt.Errorf("open destination %s: %w", dst, err)
	}
	defer w.Close()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return w.Close()
}
