package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"partscout/internal/enginecode"
	"partscout/pkg/config"
)

func NewPatternsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List the engine-code templates in registry order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			reg, err := loadRegistry(cfg.Extractor.PatternsFile)
			if err != nil {
				return err
			}
			return RenderPatterns(cmd.OutOrStdout(), reg)
		},
	}
}

// RenderPatterns prints one line per template.
func RenderPatterns(w io.Writer, reg *enginecode.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MANUFACTURER\tFAMILY\tPATTERN\tCANONICAL")
	for _, t := range reg.Templates() {
		canonical := t.Canonical
		if canonical == "" {
			canonical = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Manufacturer, t.Family, t.Pattern, canonical)
	}
	return tw.Flush()
}
