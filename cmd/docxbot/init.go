package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the storage directory tree",
	Long:  `Creates the storage root and one directory per category and subcategory. Existing files are left untouched.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := rt.openStore()
		if err != nil {
			return err
		}
		if err := store.Initialize(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Initialized %s\n", store.Root())
		for _, c := range store.Taxonomy().Categories {
			fmt.Fprintf(out, "  %s\n", c.Name)
			for _, s := range c.Subcategories {
				fmt.Fprintf(out, "    %s\n", s)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
