package classify

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/birdsound-go/internal/analysis"
	"github.com/tphakala/birdsound-go/internal/conf"
)

// Command creates the classify command for predicting the species in one clip.
func Command(settings *conf.Settings) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "classify [clip]",
		Short: "Classify a bird sound clip",
		Long:  "Predict the bird species heard in a WAV, FLAC or MP3 clip and report the confidence.",
		Args:  cobra.ExactArgs(1),
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
			return components.FileAnalysis(cmd.Context(), args[0], cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the prediction as JSON")

	return cmd
}
