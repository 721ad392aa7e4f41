package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/edutools/moodle"
	"github.com/edutools/moodle/internal/config"
	"github.com/spf13/cobra"
)

const ruleWidth = 80

type rootOptions struct {
	envFile string
	timeout time.Duration
	debug   bool
	quiet   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "edutools-moodle",
		Short: "Check moodle web service permissions",
		Long: `Connects to the moodle site in MOODLE_URL with the token in MOODLE_TOKEN,
prints the site details and checks that the web service exposes every
function the edutools moodle client calls.

Exits 0 when every function is granted, 1 otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "dotenv file to read MOODLE_URL and MOODLE_TOKEN from")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "request timeout (default MOODLE_TIMEOUT or 30s)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log every web service call")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "skip the per-function report")

	cmd.AddCommand(newSiteInfoCmd(opts))
	return cmd
}

func newLogger(w io.Writer, debug bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: "moodle"})
	logger.SetLevel(log.WarnLevel)
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func rule(w io.Writer, s styles, title string) {
	line := strings.Repeat("=", ruleWidth)
	fmt.Fprintln(w, "\n"+line)
	fmt.Fprintln(w, s.Title.Render(title))
	fmt.Fprintln(w, line)
}

// connect loads the configuration and builds the api, reporting each step
// to w. Failures are returned as an ExitError.
func connect(cmd *cobra.Command, opts *rootOptions, w io.Writer, s styles) (*moodle.MoodleApi, error) {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cfg, loaded, err := config.Load(config.LoadOptions{EnvFile: opts.envFile})
	if loaded {
		fmt.Fprintln(w, s.Success.Render("✅ Loaded configuration from "+opts.envFile))
	} else {
		fmt.Fprintln(w, s.Subtitle.Render("ℹ️  No "+opts.envFile+" file found, using environment variables"))
	}
	if err != nil {
		fmt.Fprintln(w, "\n"+s.Error.Render("❌ ERROR: Missing configuration!"))
		fmt.Fprintln(w, "\nPlease set the following environment variables:")
		fmt.Fprintln(w, s.Highlight.Render("  MOODLE_URL=https://your-moodle-site.com"))
		fmt.Fprintln(w, s.Highlight.Render("  MOODLE_TOKEN=your_webservice_token"))
		fmt.Fprintln(w, "\nOr create a .env file with these variables.")
		return nil, &ExitError{Code: 1, Err: err}
	}

	fmt.Fprintf(w, "🌐 Moodle URL: %s\n", cfg.URL)
	fmt.Fprintf(w, "🔑 Token: %s\n", cfg.MaskedToken())

	timeout := cfg.Timeout
	if opts.timeout > 0 {
		timeout = opts.timeout
	}
	api, err := moodle.NewMoodleApi(cfg.URL, cfg.Token,
		moodle.WithTimeout(timeout),
		moodle.WithLogger(newLogger(cmd.ErrOrStderr(), opts.debug)),
		moodle.WithOutput(w),
	)
	if err != nil {
		fmt.Fprintln(w, "\n"+s.Error.Render(fmt.Sprintf("❌ ERROR: Failed to initialize Moodle API: %v", err)))
		return nil, &ExitError{Code: 1, Err: err}
	}
	return api, nil
}

func runCheck(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	s := newStyles(w)

	rule(w, s, "EDUTOOLS-MOODLE PERMISSION CHECKER")
	api, err := connect(cmd, opts, w, s)
	if err != nil {
		return err
	}

	info, err := api.GetSiteInfo(ctx)
	if err != nil {
		fmt.Fprintln(w, "\n"+s.Warning.Render(fmt.Sprintf("⚠️  Warning: Could not get site info: %v", err)))
	} else {
		printSiteSummary(w, s, info)
	}

	report, err := api.CheckPermissions(ctx, !opts.quiet)
	if err != nil {
		fmt.Fprintln(w, "\n"+s.Error.Render(fmt.Sprintf("❌ ERROR during permission check: %v", err)))
		return &ExitError{Code: 1, Err: err}
	}

	if !report.AllGranted() {
		rule(w, s, "❌ CONFIGURATION INCOMPLETE")
		fmt.Fprintf(w, "\nYou need to add %d functions to your Moodle web service.\n", report.Denied)
		fmt.Fprintln(w, "\nSteps to fix:")
		fmt.Fprintln(w, "1. Log in to Moodle as administrator")
		fmt.Fprintln(w, "2. Go to: Site Administration → Plugins → Web Services → Manage Services")
		fmt.Fprintln(w, "3. Edit your web service and add the missing functions listed above")
		return &ExitError{Code: 1}
	}

	rule(w, s, "✅ CONFIGURATION COMPLETE")
	fmt.Fprintln(w, "\nAll required permissions are properly configured!")
	fmt.Fprintln(w, "You can now use edutools-moodle without restrictions.")
	return nil
}

func printSiteSummary(w io.Writer, s styles, info *moodle.SiteInfo) {
	user := info.FullName
	if user == "" {
		user = info.Username
	}
	fmt.Fprintln(w, "\n"+s.Success.Render("✅ Connected to: "+orUnknown(info.SiteName)))
	fmt.Fprintf(w, "👤 User: %s\n", orUnknown(user))
	fmt.Fprintf(w, "📦 Moodle version: %s\n", orUnknown(info.Release))
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
