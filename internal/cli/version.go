package cli

import (
	"fmt"
	"runtime"

	"dial-go/internal/version"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !verbose {
				_, err := fmt.Fprintln(out, version.Version)
				return err
			}
			_, err := fmt.Fprintf(out, "dial-go %s (%s, %s/%s)\n",
				version.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include go version and platform")
	return cmd
}
