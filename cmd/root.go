package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/chunkr/internal/output"
	"github.com/tanq16/chunkr/internal/utils"
)

var ChunkrVersion = "dev"

var (
	debug      bool
	noProgress bool
	configPath string
	timeout    time.Duration
	kaTimeout  time.Duration
	userAgent  string
	headers    []string
)

// cfg holds the merged configuration once PersistentPreRunE has run.
var cfg utils.Config

var rootCmd = &cobra.Command{
	Use:     "chunkr",
	Short:   "Chunkr is a resumable, parallel HTTP file downloader",
	Version: ChunkrVersion,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.InitLogger(debug)
		loaded, err := utils.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = applyGlobalFlags(cmd, loaded)
		if err := cfg.Validate(); err != nil {
			return err
		}
		log.Debug().Str("op", "cmd/root").Int("retries", cfg.Retries).Int("parallel", cfg.Parallel).
			Dur("timeout", cfg.Timeout).Msg("Configuration loaded")
		return nil
	},
}

// applyGlobalFlags overrides config values with persistent flags that were
// set explicitly on the command line.
func applyGlobalFlags(cmd *cobra.Command, c utils.Config) utils.Config {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		c.Timeout = timeout
	}
	if flags.Changed("keep-alive-timeout") {
		c.KeepAliveTimeout = kaTimeout
	}
	if flags.Changed("user-agent") {
		c.UserAgent = userAgent
	}
	if c.UserAgent == "randomize" {
		c.UserAgent = utils.GetRandomUserAgent()
	}
	for k, v := range utils.ParseHeaderArgs(headers) {
		c.Headers[k] = v
	}
	return c
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable the live progress display")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is $XDG_CONFIG_HOME/chunkr/config.yaml)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", utils.DefaultTimeout, "Connection timeout (eg. 5s, 10m)")
	rootCmd.PersistentFlags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", utils.DefaultKeepAliveTimeout, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent ('randomize' picks a browser agent)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")

	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newCleanCmd())
}
