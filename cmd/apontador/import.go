package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import --rater <rater> <file.csv>",
	Short: "Merge a CSV of clicks into a rater",
	Long: `Merge a name,click_x,click_y table into the clicks of a rater. Rows of images already
annotated are overwritten, other clicks are kept. Rows that can't be read are skipped
and reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		_, storage, c, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer storage.Close()

		result, err := c.ImportCSV(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("while importing '%s': %w", args[0], err)
		}
		if result.Errors != nil {
			log.Printf("Skipped rows: %s", result.Errors)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows (%d new), skipped %d\n", result.Merged, result.Added, result.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringP("rater", "r", "", "Rater key or alias")
	importCmd.MarkFlagRequired("rater")
}
