package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikishkaa/docx-bot/internal/model"
)

var lsJSON bool

var lsCmd = &cobra.Command{
	Use:   "ls [category] [subcategory]",
	Short: "List stored files",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var category, subcategory string
		if len(args) > 0 {
			category = args[0]
		}
		if len(args) > 1 {
			subcategory = args[1]
		}

		store, err := rt.openStore()
		if err != nil {
			return err
		}
		tax := store.Taxonomy()
		if category != "" && !tax.HasCategory(category) {
			return fmt.Errorf("unknown category %q", category)
		}
		if subcategory != "" && !tax.ValidSubcategory(category, subcategory) {
			return fmt.Errorf("unknown subcategory %q in %s", subcategory, category)
		}

		files, err := store.List(category, subcategory)
		if err != nil {
			return err
		}
		return printFiles(cmd.OutOrStdout(), files, lsJSON)
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "Output in JSON format")
}

// printFiles writes files as an aligned table or as indented JSON.
func printFiles(w io.Writer, files []model.StoredFile, asJSON bool) error {
	if asJSON {
		if files == nil {
			files = []model.StoredFile{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(files)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCOPE\tSIZE\tMODIFIED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, f.Scope(), f.Size, f.Modified.In(rt.loc).Format(time.DateTime))
	}
	return tw.Flush()
}
