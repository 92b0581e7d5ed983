package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	chunkhttp "github.com/tanq16/chunkr/internal/downloaders/http"
	"github.com/tanq16/chunkr/internal/output"
	"github.com/tanq16/chunkr/internal/utils"
)

func newDownloadCmd() *cobra.Command {
	var outputPath string
	var retries, parallel int
	var resume bool

	cmd := &cobra.Command{
		Use:     "download URL [OUTPUT]",
		Aliases: []string{"dl"},
		Short:   "Download a file over HTTP/HTTPS, in parallel chunks when the server allows it",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL := args[0]
			if err := validateURL(rawURL); err != nil {
				return err
			}
			if outputPath == "" && len(args) == 2 {
				outputPath = args[1]
			}
			if outputPath == "" {
				outputPath = utils.OutputPathFromURL(rawURL)
			}
			if cmd.Flags().Changed("retries") {
				cfg.Retries = retries
			}
			if cmd.Flags().Changed("parallel") {
				cfg.Parallel = parallel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			req := chunkhttp.Request{
				URL:         rawURL,
				OutputPath:  outputPath,
				Retries:     cfg.Retries,
				Resume:      resume,
				Parallelism: cfg.Parallel,
			}
			if err := runDownload(cmd.Context(), req); err != nil {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (inferred from the URL if not provided)")
	cmd.Flags().IntVarP(&retries, "retries", "r", utils.DefaultRetries, "Retries per chunk after the first attempt")
	cmd.Flags().BoolVar(&resume, "resume", false, "Reuse data from a previous interrupted download")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", utils.DefaultParallel, "Number of parallel connections")
	return cmd
}

func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q (only http and https)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL %q has no host", rawURL)
	}
	return nil
}

func runDownload(parent context.Context, req chunkhttp.Request) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := utils.NewHTTPClient(utils.HTTPClientConfig{
		Timeout:      cfg.Timeout,
		KATimeout:    cfg.KeepAliveTimeout,
		UserAgent:    cfg.UserAgent,
		Headers:      cfg.Headers,
		LargeBuffers: req.Parallelism > utils.HighThreadConnections,
	})

	manager := output.NewManager(req.URL, req.OutputPath)
	progressCh := make(chan utils.ProgressEvent, 256)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		manager.Consume(progressCh)
	}()
	if !noProgress && !debug {
		manager.StartDisplay()
	}

	downloader := chunkhttp.New(client,
		chunkhttp.WithBackoff(cfg.BackoffBase, cfg.BackoffMax),
		chunkhttp.WithProgress(progressCh),
		chunkhttp.WithNotify(noticeFunc(manager)),
	)
	log.Debug().Str("op", "cmd/download").Msgf("Downloading %s to %s", req.URL, req.OutputPath)
	err := downloader.Download(ctx, req)
	close(progressCh)
	<-progressDone

	if err != nil {
		manager.ReportError(errors.New(describeError(err, req)))
	} else {
		manager.Complete("")
	}
	manager.StopDisplay()
	return err
}

// noticeFunc shows downloader notices in the live display header, or
// prints them when no display is running.
func noticeFunc(manager *output.Manager) func(string) {
	return func(msg string) {
		if manager.Live() {
			manager.SetMessage(msg)
			return
		}
		output.PrintWarning(fmt.Sprintf("%s %s", output.StyleSymbols["warning"], msg))
	}
}

// describeError turns a download failure into a message naming the phase
// that failed and what the user can do about it.
func describeError(err error, req chunkhttp.Request) string {
	var dlErr *chunkhttp.DownloadError
	if !errors.As(err, &dlErr) {
		return err.Error()
	}
	switch dlErr.Phase {
	case chunkhttp.PhaseMetadata:
		return fmt.Sprintf("Could not read file metadata: %v", dlErr.Err)
	case chunkhttp.PhaseTransfer:
		return fmt.Sprintf("Transfer failed: %v (rerun with --resume to continue)", dlErr.Err)
	case chunkhttp.PhasePartialFailure:
		return fmt.Sprintf("Chunks %v failed; completed chunks were kept (rerun with --resume, or `chunkr clean %s`): %v",
			dlErr.Chunks, req.OutputPath, dlErr.Err)
	case chunkhttp.PhaseAssembly:
		return fmt.Sprintf("Assembly failed: %v (rerun with --resume to finish assembling)", dlErr.Err)
	default:
		return fmt.Sprintf("Filesystem error: %v", dlErr.Err)
	}
}
