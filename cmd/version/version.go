package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdsound-go/internal/buildinfo"
)

// Command creates a new cobra.Command printing build metadata.
func Command(info buildinfo.BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the birdsound version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "birdsound %s (built %s)\n", info.Version(), info.BuildDate())
			return err
		},
	}

	return cmd
}
