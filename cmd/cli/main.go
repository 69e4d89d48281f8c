package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/ytdl-relay/internal/domain"
	"github.com/yourusername/ytdl-relay/pkg/logger"
)

var (
	serverURL   string
	noAutoStart bool
	verbose     bool
	rootCmd     = &cobra.Command{
		Use:           "ytdl",
		Short:         "ytdl CLI - validate and download videos through a ytdl-relay server",
		Long:          `A command-line client for a ytdl-relay server: inspect a video's encodings, download one while watching progress, or query a session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging to stderr")

	downloadCmd.Flags().StringP("encoding", "e", "", "Encoding id (default: best available)")
	downloadCmd.Flags().StringP("output", "o", "", "Output file (default: server-provided filename)")
	downloadCmd.Flags().Duration("interval", 500*time.Millisecond, "Progress poll interval")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(progressCmd)
}

// client returns an API client, starting a local server first unless
// --no-auto-start is set.
func client(ctx context.Context) *apiClient {
	c := newAPIClient(strings.TrimRight(serverURL, "/"))
	if !noAutoStart {
		if err := ensureServerRunning(ctx, c); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return c
}

var validateCmd = &cobra.Command{
	Use:   "validate [url]",
	Short: "Show a video's metadata and encodings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := client(cmd.Context()).Validate(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:       %s\n", info.ID)
		fmt.Fprintf(out, "Title:    %s\n", info.Title)
		if info.Author != "" {
			fmt.Fprintf(out, "Author:   %s\n", info.Author)
		}
		fmt.Fprintf(out, "Duration: %s\n", time.Duration(info.Duration)*time.Second)
		fmt.Fprintln(out)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ENCODING\tLABEL\tTYPE")
		for _, enc := range info.Encodings {
			fmt.Fprintf(w, "%s\t%s\t%s\n", enc.ID, enc.Label, truncate(enc.MimeLike, 48))
		}
		return w.Flush()
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download a video while showing progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoding, _ := cmd.Flags().GetString("encoding")
		output, _ := cmd.Flags().GetString("output")
		interval, _ := cmd.Flags().GetDuration("interval")

		log := logger.NewCLI(verbose)
		defer log.Sync()

		return runDownload(cmd.Context(), client(cmd.Context()), downloadOptions{
			sourceURL: args[0],
			encoding:  encoding,
			output:    output,
			interval:  interval,
			progress:  cmd.ErrOrStderr(),
			log:       log,
		})
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress [id]",
	Short: "Show the progress of a download session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := client(cmd.Context()).Progress(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:       %s\n", snap.ID)
		fmt.Fprintf(out, "Status:   %s\n", snap.Status)
		fmt.Fprintf(out, "Progress: %s\n", formatProgress(snap))
		if snap.Error != "" {
			fmt.Fprintf(out, "Error:    %s (%s)\n", snap.Error, snap.ErrorKind)
		}
		return nil
	},
}

type downloadOptions struct {
	sourceURL string
	encoding  string
	output    string
	interval  time.Duration
	progress  io.Writer
	log       *zap.Logger
}

// runDownload streams the download into a file while a second goroutine
// polls /progress for the same session.
func runDownload(ctx context.Context, c *apiClient, opts downloadOptions) error {
	dl, err := c.Download(ctx, opts.sourceURL, opts.encoding)
	if err != nil {
		return err
	}
	defer dl.Body.Close()

	path := opts.output
	if path == "" {
		path = filepath.Base(dl.Filename)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	opts.log.Debug("Download started",
		zap.String("id", dl.SessionID),
		zap.String("file", path),
		zap.Int64("size", dl.Size))

	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	var written int64
	g.Go(func() error {
		defer close(done)
		n, err := io.Copy(file, dl.Body)
		written = n
		if err != nil {
			return fmt.Errorf("download interrupted after %s: %w", humanize.IBytes(uint64(n)), err)
		}
		return file.Sync()
	})

	g.Go(func() error {
		return pollProgress(gctx, c, dl.SessionID, opts.interval, done, opts.progress)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(opts.progress, "Saved %s (%s)\n", path, humanize.IBytes(uint64(written)))
	return nil
}

// pollProgress prints one progress line per interval until the session is
// terminal. After done is closed it keeps polling briefly so the final
// state is printed.
func pollProgress(ctx context.Context, c *apiClient, id string, interval time.Duration, done <-chan struct{}, out io.Writer) error {
	if id == "" || interval <= 0 {
		<-done
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var settle <-chan time.Time
	for {
		snap, err := c.Progress(ctx, id)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("progress: %w", err)
		}
		if err == nil {
			fmt.Fprintf(out, "\r%-12s %s", snap.Status, formatProgress(snap))
			if snap.IsTerminal() {
				fmt.Fprintln(out)
				if snap.Status == domain.StatusFailed {
					return fmt.Errorf("download failed: %s: %s", snap.ErrorKind, snap.Error)
				}
				return nil
			}
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case <-done:
			done = nil
			settle = time.After(2 * time.Second)
		case <-settle:
			fmt.Fprintln(out)
			return nil
		case <-ticker.C:
		}
	}
}

func formatProgress(snap domain.Snapshot) string {
	if snap.Indeterminate {
		return fmt.Sprintf("%s of unknown size", snap.Downloaded)
	}
	return fmt.Sprintf("%5.1f%%  %s / %s", snap.Percent, snap.Downloaded, snap.Total)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
