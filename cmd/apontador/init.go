package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lewtec/apontador/annotation"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [folder]",
	Short: "Initialize a new annotation project",
	Long: `Initialize a new annotation project by creating:
- A sample configuration file (config.yaml)
- An images folder
- The configured storage (an empty SQLite database for the sample config)

Example:
  apontador init ./my-project`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create project folder: %w", err)
		}
		configFile, err := initProject(cmd.Context(), dir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "✓ Initialization complete!")
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "  1. Put your images in:", filepath.Join(dir, "images"))
		fmt.Fprintln(out, "  2. Review the raters in:", configFile)
		fmt.Fprintln(out, "  3. Start the annotation server:")
		fmt.Fprintf(out, "     apontador %s\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// initProject creates what is missing of a project folder and returns its config file
func initProject(ctx context.Context, dir string) (string, error) {
	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Printf("Creating default config: %s", configFile)
		if err := createSampleConfig(configFile); err != nil {
			return "", fmt.Errorf("failed to create config: %w", err)
		}
	} else {
		log.Printf("Config file already exists: %s", configFile)
	}

	config, err := annotation.LoadConfig(configFile)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	imagesDir := config.ImagesDir()
	if _, err := os.Stat(imagesDir); os.IsNotExist(err) {
		log.Printf("Creating images directory: %s", imagesDir)
		if err := os.MkdirAll(imagesDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create images directory: %w", err)
		}
	}

	storage, err := annotation.PrepareStorage(ctx, config)
	if err != nil {
		return "", fmt.Errorf("failed to prepare storage: %w", err)
	}
	return configFile, storage.Close()
}

func createSampleConfig(filename string) error {
	sampleConfig := `# apontador configuration file

meta:
  description: |
    Sample annotation project.
    Click the **point of interest** on each image. Edit this text to explain what to look for.

images:
  # relative to this file
  dir: images
  # use */*.* for images grouped in folders
  pattern: "*.*"
  # optional CAM overlay shown next to each image, {id} is the image name
  # overlay: "cams/{id}_cam.png"

display:
  width: 900    # 400 to 1200
  radius: 40    # 10 to 120, display pixels
  fill: "#ffd700"
  fill_alpha: 0.2
  stroke: "#ffd700"
  stroke_px: 2

# csv keeps one clicks_<rater>.csv per rater in storage.path
# postgres reads storage.dsn or APONTADOR_DATABASE_URL
storage:
  driver: sqlite
  path: annotations.db

# who clicks; the key is used in URLs and files
raters:
  rater1:
    name: "Rater 1"
    aliases: [r1]
  rater2:
    name: "Rater 2"
    aliases: [r2]

language: en
`
	return os.WriteFile(filename, []byte(sampleConfig), 0644)
}
