package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find files by name",
	Long:  `Matches file names case-insensitively. A name matches when it contains the query; queries with glob metacharacters (* ? [ {) also match names the pattern accepts.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rt.openStore()
		if err != nil {
			return err
		}
		files, err := store.Search(strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printFiles(cmd.OutOrStdout(), files, searchJSON)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
}
