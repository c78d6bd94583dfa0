/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/lewtec/apontador/annotation"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "apontador [folder|config.yaml]",
	Short: "Point at what matters in each image",
	Long: strings.TrimSpace(`
Show a set of images to raters one at a time and record the point each of them clicks, one
point per rater and image.

If you provide a folder, a config.yaml, an images folder and the database are created in
it when missing. If you provide a config file, it is used as is.
    `),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		if len(args) == 1 {
			arg := args[0]
			if stat, err := os.Stat(arg); err == nil && stat.IsDir() {
				log.Printf("Detected folder argument: %s", arg)
				configFile, err = initProject(cmd.Context(), arg)
				if err != nil {
					return err
				}
			} else {
				configFile = arg
			}
		}

		config, err := loadConfig(cmd, configFile)
		if err != nil {
			return err
		}
		items, err := annotation.ListItems(config)
		if err != nil {
			return fmt.Errorf("while listing images: %w", err)
		}
		if items.Len() == 0 {
			log.Printf("No images found in %s matching '%s', add some and run again", config.ImagesDir(), config.Images.Pattern)
			return nil
		}

		storage, err := annotation.PrepareStorage(cmd.Context(), config)
		if err != nil {
			return fmt.Errorf("failed to prepare storage: %w", err)
		}
		defer storage.Close()

		app, err := annotation.NewAnnotatorApp(config, items, storage)
		if err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("addr")
		log.Printf("Configuration: %s", configFile)
		log.Printf("Images: %s (%d)", config.ImagesDir(), items.Len())
		log.Printf("Storage: %s", config.Storage.Driver)
		log.Printf("Raters configured: %d", len(config.Raters))
		for _, key := range config.RaterKeys() {
			log.Printf("  - %s: %s", key, config.Raters[key].Name)
		}
		log.Printf("Starting server on: %s", addr)

		server := &http.Server{Addr: addr, Handler: app.GetHTTPHandler()}
		go func() {
			<-cmd.Context().Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// loadConfig loads the config file and dumps it when --debug is set
func loadConfig(cmd *cobra.Command, configFile string) (*annotation.Config, error) {
	config, err := annotation.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		spew.Fdump(cmd.ErrOrStderr(), config)
	}
	return config, nil
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatalf("Error executing command: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "Config file for the annotation")
	rootCmd.PersistentFlags().Bool("debug", false, "Dump the loaded config")
	rootCmd.Flags().StringP("addr", "a", ":8080", "Address to bind the webserver")
}
