package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nikishkaa/docx-bot/internal/service"
)

var (
	statsUser string
	statsTop  int
)

var statsCmd = &cobra.Command{
	Use:   "stats [file]",
	Short: "Show download statistics",
	Long: `Without arguments prints the most downloaded files.
With a file name prints its totals; with --user prints one user's downloads.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && statsUser != "" {
			return errors.New("pass either a file name or --user, not both")
		}
		if statsUser != "" {
			if _, err := strconv.ParseInt(statsUser, 10, 64); err != nil {
				return fmt.Errorf("invalid user id %q", statsUser)
			}
		}

		store, err := rt.openStore()
		if err != nil {
			return err
		}
		downloads, db, err := rt.openLedger(cmd.Context())
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}
		files := service.NewFileService(store, downloads, nil, nil, rt.log)
		out := cmd.OutOrStdout()

		switch {
		case len(args) == 1:
			s := files.FileStats(cmd.Context(), args[0])
			fmt.Fprintf(out, "%s\nDownloads: %d\nUnique users: %d\n", s.Name, s.Total, s.UniqueUsers)
		case statsUser != "":
			printUserStats(out, files.UserStats(cmd.Context(), statsUser).PerFile)
		default:
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDOWNLOADS\tUSERS")
			for _, s := range files.TopFiles(cmd.Context(), statsTop) {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", s.Name, s.Total, s.UniqueUsers)
			}
			return tw.Flush()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsUser, "user", "", "Telegram user id")
	statsCmd.Flags().IntVar(&statsTop, "top", 10, "Number of files to list")
}

func printUserStats(w io.Writer, perFile map[string]int) {
	names := make([]string, 0, len(perFile))
	total := 0
	for name, n := range perFile {
		names = append(names, name)
		total += n
	}
	slices.Sort(names)

	fmt.Fprintf(w, "Downloads: %d across %d file(s)\n", total, len(names))
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, perFile[name])
	}
}
