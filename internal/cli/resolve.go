package cli

import (
	"github.com/spf13/cobra"
)

func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <identifier>",
		Short: "Resolve a VIN or engine code and print the parts report",
		Example: `  partscout resolve D16W73005025
  partscout resolve 1HGEM21533L123456 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app, err := Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Service.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return RenderJSON(cmd.OutOrStdout(), res)
			}
			return RenderText(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the resolution as JSON")
	return cmd
}
