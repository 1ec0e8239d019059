package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trebuchet-org/payrail/internal/config"
)

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of payrail",
		Run: func(cmd *cobra.Command, args []string) {
			version, commit, date := config.BuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "payrail version %s (%s, %s)\n", version, commit, date)
		},
	}
}
