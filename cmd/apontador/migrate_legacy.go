package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-git/go-billy/v6/osfs"
	"github.com/hashicorp/go-multierror"
	"github.com/lewtec/apontador/annotation"
	"github.com/lewtec/apontador/internal/repository"
	"github.com/lewtec/apontador/internal/store"
	"github.com/spf13/cobra"
)

// migrateLegacyCmd represents the migrate-legacy command
var migrateLegacyCmd = &cobra.Command{
	Use:   "migrate-legacy <clicks-dir>",
	Short: "Import a folder of clicks_<rater>.csv files",
	Long: `Merge every clicks_<rater>.csv file of a folder into the configured storage.

Files with the click_y column before click_x are read as well. Rows that can't be parsed
are skipped and counted, the rest of their file is still merged. A file whose rater is an
alias is merged into the rater it names; unknown raters are imported under their own name.

Example: apontador migrate-legacy -c config.yaml ./old/clicks`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if stat, err := os.Stat(args[0]); err != nil || !stat.IsDir() {
			return fmt.Errorf("clicks folder not found: %s", args[0])
		}
		configFile, _ := cmd.Flags().GetString("config")
		config, err := loadConfig(cmd, configFile)
		if err != nil {
			return err
		}
		storage, err := annotation.PrepareStorage(cmd.Context(), config)
		if err != nil {
			return fmt.Errorf("failed to prepare storage: %w", err)
		}
		defer storage.Close()

		legacy := repository.NewCSVRepository(osfs.New(args[0]))
		raters, err := legacy.RaterFiles(cmd.Context())
		if err != nil {
			return fmt.Errorf("while listing legacy files: %w", err)
		}
		log.Printf("Migrating %d raters from %s", len(raters), args[0])

		var errs *multierror.Error
		for _, legacyRater := range raters {
			key, ok := config.ResolveRater(legacyRater)
			if !ok {
				log.Printf("  Warning: rater '%s' is not configured, importing as is", legacyRater)
				key = legacyRater
			}
			records, malformed, err := legacy.Read(cmd.Context(), legacyRater)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("while reading rater '%s': %w", legacyRater, err))
				continue
			}
			for _, m := range malformed {
				log.Printf("  Warning: %s: %s", legacyRater, m)
			}
			if len(records) == 0 {
				log.Printf("  Skipping '%s', no readable rows", legacyRater)
				continue
			}
			s, err := store.Open(cmd.Context(), storage.Repository, key)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			result, err := s.MergeUpsert(cmd.Context(), records)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			log.Printf("  ✓ %s → %s: %d clicks (%d new, %d skipped)", legacyRater, key, result.Merged(), result.Added, result.Skipped+len(malformed))
		}
		return errs.ErrorOrNil()
	},
}

func init() {
	rootCmd.AddCommand(migrateLegacyCmd)
}
