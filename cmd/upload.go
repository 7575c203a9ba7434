package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/StinkyLord/sbom-enricher/internal/sbom"
	"github.com/StinkyLord/sbom-enricher/internal/upload"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload an SBOM to the configured destinations",
	Long: `Upload an SBOM to every configured destination, or to the ones named
with --destination. Each destination runs independently; one failing does
not stop the others.

Examples:
  sbom-enricher upload --sbom sbom.json
  sbom-enricher upload --sbom sbom.json --destination s3 --destination dependency-track`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		path := resolve(flagSBOM)
		doc, err := sbom.Load(path)
		if err != nil {
			return err
		}
		return uploadDocument(ctx, doc, path)
	},
}

func init() {
	uploadCmd.Flags().StringVarP(&flagSBOM, "sbom", "i", "sbom.json", "SBOM file to upload")
	addAugmentFlags(uploadCmd)
	addUploadFlags(uploadCmd)
	rootCmd.AddCommand(uploadCmd)
}

// uploadDocument fans path out to the selected destinations and prints one
// line per result.
func uploadDocument(ctx context.Context, doc sbom.Document, path string) error {
	format, err := upload.ParseFormat(string(doc.Format()))
	if err != nil {
		return err
	}
	name, version := doc.RootComponent()
	payload, err := upload.NewPayload(path, format, name, version)
	if err != nil {
		return err
	}

	o := newOrchestrator()
	var results []upload.Result
	if len(cfg.Upload.Destinations) == 0 {
		results = o.DispatchAll(ctx, payload)
		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No upload destination is configured")
			return nil
		}
	} else {
		for _, dest := range cfg.Upload.Destinations {
			res, err := o.DispatchOne(ctx, payload, dest)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
	}

	failed := 0
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(os.Stderr, "Uploaded to %-17s %s\n", r.Destination+":", r.ArtifactID)
			continue
		}
		failed++
		fmt.Fprintf(os.Stderr, "Upload to %-16s failed: %s\n", r.Destination+":", r.Error)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d upload(s) failed", failed, len(results))
	}
	return nil
}
