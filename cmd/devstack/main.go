package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/acadrec/devstack/internal/config"
)

var (
	// Version is set during build
	Version = "dev"
	// BuildTime is set during build
	BuildTime = "unknown"
)

// options collects the flag values shared by all subcommands
type options struct {
	projectDir  string
	envFile     string
	envTemplate string
	manifest    string
	runtime     string
	dataDir     string
	timeout     time.Duration
	noColor     bool
	verbose     bool
}

// settings resolves the flag values into the immutable bootstrap settings,
// loading the stack manifest (or the built-in defaults) along the way
func (o *options) settings() (config.Settings, error) {
	settings := config.DefaultSettings(o.projectDir)

	if o.envFile != "" {
		settings.EnvFile = o.envFile
	}
	if o.envTemplate != "" {
		settings.EnvTemplate = o.envTemplate
	}
	if o.manifest != "" {
		settings.ManifestPath = o.manifest
	}
	if o.runtime != "" {
		settings.RuntimeBinary = o.runtime
	}
	if o.timeout > 0 {
		settings.WaitTimeout = o.timeout
	}
	settings.DataDir = o.resolveDataDir()

	services, err := config.LoadManifest(settings.ManifestPath)
	if err != nil {
		return config.Settings{}, err
	}
	settings.Services = services

	return settings, nil
}

// resolveDataDir picks the data directory: flag, then DEVSTACK_DATA_DIR,
// then ~/.devstack
func (o *options) resolveDataDir() string {
	if o.dataDir != "" {
		return o.dataDir
	}
	if env := os.Getenv("DEVSTACK_DATA_DIR"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devstack"
	}
	return filepath.Join(home, ".devstack")
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "devstack",
		Short: "Local development stack bootstrapper",
		Long: `Devstack brings the local development stack (application + database)
from a clean checkout to a running, verified state. Every step is
idempotent, so re-running it is always safe.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
			if opts.verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd.Context(), log, opts)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.projectDir, "project-dir", ".", "Compose project directory")
	pf.StringVar(&opts.envFile, "env-file", "", "Env file path (default <project-dir>/.env)")
	pf.StringVar(&opts.envTemplate, "env-template", "", "Env template path (default <project-dir>/.env.example)")
	pf.StringVar(&opts.manifest, "manifest", "", "Stack manifest path (default <project-dir>/devstack.yaml)")
	pf.StringVar(&opts.runtime, "runtime", "", "Container runtime binary (default docker)")
	pf.StringVar(&opts.dataDir, "data-dir", "", "Data directory (can also be set via DEVSTACK_DATA_DIR env var)")
	pf.DurationVar(&opts.timeout, "timeout", 0, "Overall readiness deadline (default 90s)")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable colorized output and the spinner")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newUpCmd(log, opts),
		newDownCmd(log, opts),
		newStatusCmd(log, opts),
		newLogsCmd(log, opts),
		newHistoryCmd(log, opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("devstack %s (built at %s)\n", Version, BuildTime)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}
