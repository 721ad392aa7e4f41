package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSiteInfoCmd(opts *rootOptions) *cobra.Command {
	var minVersion string
	cmd := &cobra.Command{
		Use:   "site-info",
		Short: "Print the moodle site details and check its version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			s := newStyles(w)

			api, err := connect(cmd, opts, w, s)
			if err != nil {
				return err
			}
			info, err := api.GetSiteInfo(ctx)
			if err != nil {
				fmt.Fprintln(w, "\n"+s.Error.Render(fmt.Sprintf("❌ ERROR: Could not get site info: %v", err)))
				return &ExitError{Code: 1, Err: err}
			}
			printSiteSummary(w, s, info)
			fmt.Fprintf(w, "🔧 Functions available: %d\n", len(info.Functions))

			ok, err := api.CheckMoodleVersion(ctx, minVersion)
			switch {
			case err != nil:
				return &ExitError{Code: 1, Err: err}
			case ok:
				fmt.Fprintln(w, s.Success.Render("✅ Moodle version is "+minVersion+" or later"))
			default:
				fmt.Fprintln(w, s.Error.Render("❌ Moodle version is older than "+minVersion))
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&minVersion, "min-version", "3.9", "minimum supported moodle release")
	return cmd
}
