package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safestep/internal/platform/config"
	"safestep/internal/platform/logger"
	"safestep/internal/queue"
)

// maxLineSize bounds a single JSON-lines record.
const maxLineSize = 1 << 20

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	DryRun bool
}

// ReplayRejection is one rejected line.
type ReplayRejection struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ReplayResult summarises a replay run.
type ReplayResult struct {
	Records       int               `json:"records"`
	Accepted      int               `json:"accepted"`
	Linked        int               `json:"linked"`
	Batches       int               `json:"batches"`
	FailedBatches int               `json:"failed_batches"`
	Rejected      []ReplayRejection `json:"rejected,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <file.jsonl>",
		Short: "Feed a JSON-lines file of records through the processor",
		Long: `Read one record body per line and process them in batches of
INTAKE_BATCH_SIZE, exactly as the queue consumer would. Use it to re-drive
dead-lettered records.

With --dry-run the store is in memory, email goes to the log and Redis is
not used, so nothing outside the process is touched.

Exit codes:
  0 - Every batch committed
  1 - At least one batch failed to commit
  2 - Command error (bad configuration, unreadable file)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "use an in-memory store and log-only email")
	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, path string, out io.Writer) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.DryRun {
		cfg.Store.Driver = "memory"
		cfg.Notify.Driver = "log"
		cfg.Redis.URL = ""
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read replay file", err)
	}
	msgs, err := readMessages(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse replay file", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		return WrapExitError(ExitCommandError, "build logger", err)
	}
	defer func() { _ = log.Sync() }()

	app, err := Build(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		return WrapExitError(ExitCommandError, "wire intake", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close resources", zap.Error(err))
		}
	}()

	result := ReplayResult{Records: len(msgs)}
	for start := 0; start < len(msgs); start += cfg.Queue.BatchSize {
		end := min(start+cfg.Queue.BatchSize, len(msgs))
		res := app.Processor.Process(ctx, msgs[start:end])

		result.Batches++
		result.Accepted += len(res.Accepted)
		result.Linked += len(res.Linked)
		if !res.Committed {
			result.FailedBatches++
		}
		for _, rej := range res.Rejected {
			result.Rejected = append(result.Rejected, ReplayRejection{ID: rej.Message.ID, Reason: rej.Reason.Error()})
		}
	}

	if err := writeOutput(out, opts.Format, result, func(w io.Writer) {
		fmt.Fprintf(w, "records=%d accepted=%d rejected=%d linked=%d batches=%d failed_batches=%d\n",
			result.Records, result.Accepted, len(result.Rejected), result.Linked, result.Batches, result.FailedBatches)
		for _, rej := range result.Rejected {
			fmt.Fprintf(w, "  %s: %s\n", rej.ID, rej.Reason)
		}
	}); err != nil {
		return err
	}

	if result.FailedBatches > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d batch(es) failed to commit", result.FailedBatches))
	}
	return nil
}

// readMessages turns each non-blank line into a message identified by its
// line number.
func readMessages(data []byte) ([]queue.Message, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var msgs []queue.Message
	line := 0
	for scanner.Scan() {
		line++
		body := bytes.TrimSpace(scanner.Bytes())
		if len(body) == 0 {
			continue
		}
		msgs = append(msgs, queue.Message{
			ID:   fmt.Sprintf("line:%d", line),
			Body: bytes.Clone(body),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}
