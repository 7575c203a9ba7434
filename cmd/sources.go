package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/StinkyLord/sbom-enricher/internal/sources"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List metadata sources in priority order",
	Long: `List every registered metadata source in the order augment consults
them, and whether it applies to the project directory with the current
settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newSources()
		if err != nil {
			return err
		}
		sctx := cfg.SourceContext(workDir)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PRIORITY\tSOURCE\tAPPLIES")
		for _, s := range reg.List() {
			applies, err := sources.Supports(s, sctx)
			if err != nil {
				fmt.Fprintf(w, "%d\t%s\terror: %v\n", s.Priority(), s.Name(), err)
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%v\n", s.Priority(), s.Name(), applies)
		}
		return w.Flush()
	},
}

func init() {
	addAugmentFlags(sourcesCmd)
	rootCmd.AddCommand(sourcesCmd)
}
