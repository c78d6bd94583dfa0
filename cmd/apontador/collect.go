package main

import (
	"fmt"
	"log"

	"github.com/lewtec/apontador/annotation"
	"github.com/lewtec/apontador/internal/clicksource"
	"github.com/lewtec/apontador/internal/session"
	"github.com/spf13/cobra"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect --rater <rater>",
	Short: "Annotate from the terminal",
	Long: `Annotate the images of the project from the terminal.

Each image is announced with its size. Answer with "x y" to click at image scale or
"x y width height" for a click on the image shown at width x height. An empty line keeps
the current image and "q" stops.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, storage, c, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer storage.Close()

		keepGoing, _ := cmd.Flags().GetBool("keep-going")
		src := clicksource.NewLine(cmd.InOrStdin(), cmd.OutOrStdout())
		err = session.Run(cmd.Context(), c, src, session.RunOptions{
			Radius:    config.Display.Radius,
			KeepGoing: keepGoing,
		})
		p := c.Progress()
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d annotated, %d remaining\n", p.Done, p.Total, p.Remaining)
		return err
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringP("rater", "r", "", "Rater key or alias")
	collectCmd.Flags().Bool("keep-going", false, "Keep asking after every image is annotated")
	collectCmd.MarkFlagRequired("rater")
}

// openSession loads the project and starts a session for the --rater flag
func openSession(cmd *cobra.Command) (*annotation.Config, *annotation.Storage, *session.Controller, error) {
	configFile, _ := cmd.Flags().GetString("config")
	config, err := loadConfig(cmd, configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	key, err := resolveRater(cmd, config)
	if err != nil {
		return nil, nil, nil, err
	}
	items, err := annotation.ListItems(config)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("while listing images: %w", err)
	}
	storage, err := annotation.PrepareStorage(cmd.Context(), config)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to prepare storage: %w", err)
	}
	c, err := session.New(items, storage.Repository)
	if err == nil {
		err = c.SwitchRater(cmd.Context(), key)
	}
	if err != nil {
		storage.Close()
		return nil, nil, nil, err
	}
	return config, storage, c, nil
}

func resolveRater(cmd *cobra.Command, config *annotation.Config) (string, error) {
	alias, _ := cmd.Flags().GetString("rater")
	key, ok := config.ResolveRater(alias)
	if !ok {
		return "", fmt.Errorf("unknown rater '%s', configured: %v", alias, config.RaterKeys())
	}
	if key != alias {
		log.Printf("Rater '%s' is '%s'", alias, key)
	}
	return key, nil
}
