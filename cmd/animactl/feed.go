package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agenthands/anima/internal/core/model"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
)

func newFeedCommand(root *rootOptions) *cobra.Command {
	var session, out string

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Export the social feed of a session",
		Long: `Export the social feed of a session as JSON, newest first.

With --out the feed is written to a file; a .zst suffix compresses it.`,
		Example: `  animactl feed --session s1
  animactl feed --session s1 --out feed.json.zst`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := root.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			feed, err := a.SocialDynamics(ctx, session)
			if err != nil {
				return err
			}
			if out == "" {
				return printJSON(cmd.OutOrStdout(), feed)
			}
			if err := exportFeed(out, feed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d activities to %s\n", feed.Total, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "session id (required)")
	cmd.Flags().StringVar(&out, "out", "", "output file; .zst compresses")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func exportFeed(path string, feed model.Feed) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeFeed(f, feed, strings.HasSuffix(path, ".zst")); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeFeed(w io.Writer, feed model.Feed, compress bool) error {
	if !compress {
		return printJSON(w, feed)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := printJSON(enc, feed); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
