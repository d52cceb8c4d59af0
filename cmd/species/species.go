package species

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/birdsound-go/internal/analysis"
	"github.com/tphakala/birdsound-go/internal/conf"
)

// Command creates the species command listing the classes the model knows.
func Command(settings *conf.Settings) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "species",
		Short: "List the species the model can predict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := analysis.NewComponents(settings, afero.NewOsFs())
			if err != nil {
				return err
			}
			defer func() { _ = components.Close() }()

			format := analysis.FormatText
			if jsonOutput {
				format = analysis.FormatJSON
			}
			return components.ListSpecies(cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the list as JSON")

	return cmd
}
