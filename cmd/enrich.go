package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/StinkyLord/sbom-enricher/internal/deps"
	"github.com/StinkyLord/sbom-enricher/internal/enricher"
	"github.com/StinkyLord/sbom-enricher/internal/sbom"
)

var (
	flagSBOM   string
	flagOutput string
	flagUpload bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run every enrichment stage, optionally uploading the result",
	Long: `Run augment, hashes and discover on an SBOM and write the result.

Examples:
  sbom-enricher enrich --sbom sbom.json
  sbom-enricher enrich --sbom sbom.json --output enriched.json --upload
  sbom-enricher enrich --dir ./service --sbom sbom.cdx.json --lockfile uv.lock --overwrite`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd.Context(), enricher.AllStages...)
	},
}

var augmentCmd = &cobra.Command{
	Use:   "augment",
	Short: "Add supplier, manufacturer, authors and licenses to an SBOM",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd.Context(), enricher.StageAugment)
	},
}

var hashesCmd = &cobra.Command{
	Use:   "hashes",
	Short: "Attach lockfile hashes to SBOM components",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd.Context(), enricher.StageHashes)
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Add transitive dependencies found by pipdeptree",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd.Context(), enricher.StageDiscover)
	},
}

func addDocumentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagSBOM, "sbom", "i", "sbom.json", "SBOM file to enrich")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file path (default: overwrite --sbom, '-' for stdout)")
}

func addAugmentFlags(cmd *cobra.Command) {
	cmd.Flags().String("token", "", "sbomify API token")
	cmd.Flags().String("component-id", "", "sbomify component id")
	cmd.Flags().String("api-url", "", "sbomify base URL")
	cmd.Flags().String("local-config", "", "Metadata file overriding sbomify.yaml")
	cmd.Flags().String("component-name", "", "Package name looked up in the metadata catalog")
	cmd.Flags().String("ecosystem", "", "Ecosystem of --component-name (pypi, npm, cargo, ...)")
	cmd.Flags().String("catalog", "", "Extra metadata catalog YAML file")
	cmd.Flags().Bool("first-match", false, "Stop at the first source that returns metadata")
}

func addHashFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("lockfile", nil, "Lockfile to read hashes from (repeatable, default: auto-detect in --dir)")
	cmd.Flags().Bool("overwrite", false, "Replace existing hashes that differ from the lockfile")
}

func addDiscoverFlags(cmd *cobra.Command) {
	cmd.Flags().String("tree-file", "", "pipdeptree JSON file (default "+deps.DefaultTreeFile+" next to the lockfile)")
	cmd.Flags().String("pipdeptree", "", "pipdeptree command line")
	cmd.Flags().Duration("timeout", 0, "pipdeptree timeout")
	cmd.Flags().String("deps-output", "", "Also write discovered dependencies as JSON ('-' for stdout)")
}

func addUploadFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("destination", nil, "Upload only to these destinations (repeatable)")
	cmd.Flags().String("upload-dir", "", "Directory destination path")
}

func init() {
	addDocumentFlags(enrichCmd)
	addAugmentFlags(enrichCmd)
	addHashFlags(enrichCmd)
	addDiscoverFlags(enrichCmd)
	addUploadFlags(enrichCmd)
	enrichCmd.Flags().BoolVar(&flagUpload, "upload", false, "Upload the enriched SBOM to every configured destination")

	addDocumentFlags(augmentCmd)
	addAugmentFlags(augmentCmd)

	addDocumentFlags(hashesCmd)
	addHashFlags(hashesCmd)

	addDocumentFlags(discoverCmd)
	addDiscoverFlags(discoverCmd)
	addHashFlags(discoverCmd)

	rootCmd.AddCommand(enrichCmd, augmentCmd, hashesCmd, discoverCmd)
}

func runStages(ctx context.Context, stages ...string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	input := resolve(flagSBOM)
	output := resolve(flagOutput)
	if output == "" {
		output = input
	}

	fmt.Fprintf(os.Stderr, "sbom-enricher v%s\n", toolVersion)
	fmt.Fprintf(os.Stderr, "Enriching: %s\n", input)

	doc, err := sbom.Load(input)
	if err != nil {
		return err
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	rep := p.Run(ctx, doc, stages...)

	// The report is printed before any write or upload error surfaces.
	rep.Print(os.Stderr)

	if err := doc.Save(output); err != nil {
		return fmt.Errorf("failed to write SBOM: %w", err)
	}
	if output != "-" {
		fmt.Fprintf(os.Stderr, "SBOM written to: %s\n", output)
	}

	if cfg.Discover.Output != "" {
		if err := deps.WriteTree(resolve(cfg.Discover.Output), rep.Dependencies); err != nil {
			return fmt.Errorf("failed to write dependencies: %w", err)
		}
	}

	if flagUpload {
		uploadPath := output
		if output == "-" {
			tmp, err := saveTemp(doc)
			if err != nil {
				return err
			}
			defer os.Remove(tmp)
			uploadPath = tmp
		}
		if err := uploadDocument(ctx, doc, uploadPath); err != nil {
			return err
		}
	}

	if rep.Failed() {
		return fmt.Errorf("%d stage error(s)", len(rep.Errors))
	}
	return nil
}

func saveTemp(doc sbom.Document) (string, error) {
	f, err := os.CreateTemp("", "sbom-enricher-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	if err := doc.Save(path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write SBOM: %w", err)
	}
	return path, nil
}
