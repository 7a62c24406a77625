package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/agenthands/anima/internal/core/model"
	"github.com/spf13/cobra"
)

func newTickCommand(root *rootOptions) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one tick: every registered agent of the session acts once",
		Example: `  animactl tick --session s1 --roster roster.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := root.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			summary, err := a.RunTick(ctx, session)
			if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
				return perr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "session id (required)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

type eventOptions struct {
	File    string
	Targets []string
}

func newEventCommand(root *rootOptions) *cobra.Command {
	opts := &eventOptions{}

	cmd := &cobra.Command{
		Use:   "event",
		Short: "Record a physical event and let target agents react to it",
		Example: `  animactl event --file event.json
  animactl event --file event.json --targets alex,blake`,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readEvent(opts.File)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := root.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if len(opts.Targets) == 0 {
				id, err := a.IngestEvent(ctx, payload)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"session_id": payload.SessionID, "event_id": id})
			}

			res, err := a.ProcessEvent(ctx, payload.SessionID, payload, opts.Targets)
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "JSON event payload (required)")
	cmd.Flags().StringSliceVar(&opts.Targets, "targets", nil, "agent ids that react to the event")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readEvent(path string) (*model.EventPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file '%s': %w", path, err)
	}
	var payload model.EventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse event file '%s': %w", path, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event in '%s': %w", path, err)
	}
	return &payload, nil
}

func newResetCommand(root *rootOptions) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every node, post and log entry of a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := root.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			deleted, err := a.ResetSession(ctx, session)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %s: %d nodes deleted\n", session, deleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "session id (required)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newIndicesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "indices",
		Short: "Create the graph constraints and indices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := root.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if err := a.BuildIndices(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indices ready")
			return nil
		},
	}
}
