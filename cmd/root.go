package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/StinkyLord/sbom-enricher/internal/config"
	"github.com/StinkyLord/sbom-enricher/internal/logging"
)

const toolVersion = "1.0.0"

var (
	flagConfig  string
	flagDir     string
	flagVerbose bool
)

// state shared by every subcommand, filled in by the persistent pre-run.
var (
	workDir string
	cfg     *config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sbom-enricher",
	Short: "SBOM enrichment engine",
	Long: `sbom-enricher enriches CycloneDX and SPDX JSON documents and uploads them.

Stages:
  • augment   supplier, manufacturer, authors and licenses from metadata sources
  • hashes    package hashes from lockfiles (uv, poetry, Pipfile, Cargo, npm, yarn, pnpm, pub)
  • discover  transitive Python dependencies from a pipdeptree tree
  • upload    fan-out to sbomify, Dependency-Track, S3 and a local directory

Settings come from .sbom-enricher.yaml, a .env file, SBOMIFY_* environment
variables and flags, flags winning.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default <dir>/"+config.DefaultFile+")")
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "d", ".", "Project directory holding lockfiles and metadata files")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	absDir, err := filepath.Abs(flagDir)
	if err != nil {
		return fmt.Errorf("cannot resolve directory %q: %w", flagDir, err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return fmt.Errorf("directory %q does not exist: %w", absDir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", absDir)
	}

	workDir = absDir
	logger = logging.New(os.Stderr, flagVerbose)

	cfg, err = config.Load(flagConfig, workDir, cmd.Flags())
	if err != nil {
		return err
	}
	return nil
}

// resolve makes a user supplied path relative to the project directory.
func resolve(path string) string {
	if path == "" || path == "-" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}
