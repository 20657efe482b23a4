package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/glance"
)

var (
	sweepPattern string
	sweepJSON    bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete everything in the capture cache once",
	Long: `Run a single cache sweep: every entry directly under the cache directory
that matches --pattern is deleted. Entries that vanish mid-sweep are counted as
missing, not as failures.`,
	Run: func(cmd *cobra.Command, args []string) {
		extra := []glance.Option{glance.WithWatcher(false), glance.WithSweepInterval(-1)}
		if sweepPattern != "" {
			extra = append(extra, glance.WithSweepPattern(sweepPattern))
		}
		opts, err := sessionOptions(extra...)
		if err != nil {
			fatal("Failed to load config", err)
		}

		s, err := glance.Open(opts...)
		if err != nil {
			fatal("Failed to open cache", err)
		}
		defer s.Close(cmd.Context())

		report, err := s.Sweep(cmd.Context())
		if err != nil {
			fatal("Sweep failed", err)
		}

		if sweepJSON {
			if err := printJSON(os.Stdout, report); err != nil {
				fatal("Failed to encode report", err)
			}
			return
		}

		headers := []string{"Directory", "Deleted", "Missing", "Failed", "Elapsed"}
		rows := [][]string{{
			report.Dir,
			strconv.Itoa(report.Deleted),
			strconv.Itoa(report.Missing),
			strconv.Itoa(report.Failed),
			report.Elapsed.String(),
		}}
		printRows(os.Stdout, headers, rows, []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight})

		for _, err := range report.Errors {
			cmd.PrintErrln(err)
		}
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepPattern, "pattern", "", "Only delete entries whose name matches this glob")
	sweepCmd.Flags().BoolVar(&sweepJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(sweepCmd)
}
