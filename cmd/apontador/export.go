package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/lewtec/apontador/annotation"
	"github.com/lewtec/apontador/internal/csvio"
	"github.com/lewtec/apontador/internal/store"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export --rater <rater> [-o file.csv]",
	Short: "Write the clicks of a rater as CSV",
	Long: `Write the clicks of a rater as a name,click_x,click_y table, in the order they were
first recorded. The images folder is not needed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		config, err := loadConfig(cmd, configFile)
		if err != nil {
			return err
		}
		key, err := resolveRater(cmd, config)
		if err != nil {
			return err
		}
		storage, err := annotation.PrepareStorage(cmd.Context(), config)
		if err != nil {
			return fmt.Errorf("failed to prepare storage: %w", err)
		}
		defer storage.Close()

		s, err := store.Open(cmd.Context(), storage.Repository, key)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if output, _ := cmd.Flags().GetString("output"); output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
			log.Printf("Writing %d clicks of '%s' to %s", s.Len(), key, output)
		}
		return csvio.Encode(w, s.All())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("rater", "r", "", "Rater key or alias")
	exportCmd.Flags().StringP("output", "o", "", "Output file, stdout when empty")
	exportCmd.MarkFlagRequired("rater")
}
