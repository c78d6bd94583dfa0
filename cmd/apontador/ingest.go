/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/lewtec/apontador/annotation"
	"github.com/spf13/cobra"
)

type ingestJob struct {
	path      string
	outputDir string
}

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <input>... <output>",
	Short: "Ingest folders of files into a folder of PNG images.",
	Long: `Ingest folders of images that were extracted from somewhere and write them as PNG files
named after the image, keeping the folder each one was found in. Files that are not
images are ignored.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(2)(cmd, args); err != nil {
			return err
		}
		inputs := args[0 : len(args)-1]
		output := args[len(args)-1]
		for i, input := range inputs {
			fileInfo, err := os.Stat(input)
			if err != nil {
				return fmt.Errorf("on %dth argument: %w", i+1, err)
			}
			if !fileInfo.IsDir() {
				return fmt.Errorf("on %dth argument: must be a directory", i+1)
			}
		}
		return os.MkdirAll(output, 0777)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs := args[0 : len(args)-1]
		output := args[len(args)-1]
		jobs, _ := cmd.Flags().GetUint("jobs")
		jobs = max(jobs, 1)

		queue := make(chan ingestJob, 10)
		var ingested, failed atomic.Int64

		var wg sync.WaitGroup
		ingestWorker := func() {
			defer wg.Done()
			for job := range queue {
				img, err := annotation.DecodeImage(job.path)
				if err != nil {
					continue
				}
				if err := os.MkdirAll(job.outputDir, 0777); err != nil {
					log.Printf("Ingesting image error: %s", err)
					failed.Add(1)
					continue
				}
				hash, err := annotation.IngestImage(img, job.outputDir, annotation.ItemID(job.path))
				if err != nil {
					log.Printf("Ingesting image error: %s", err)
					failed.Add(1)
					continue
				}
				log.Printf("ingested '%s' (%s)", job.path, hash[:12])
				ingested.Add(1)
			}
		}
		for i := uint(0); i < jobs; i++ {
			wg.Add(1)
			go ingestWorker()
		}

		var walkErr error
		for _, input := range inputs {
			walkErr = filepath.WalkDir(input, func(path string, info fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				if info.IsDir() {
					return nil
				}
				rel, err := filepath.Rel(input, filepath.Dir(path))
				if err != nil {
					return err
				}
				queue <- ingestJob{path: path, outputDir: filepath.Join(output, rel)}
				return nil
			})
			if walkErr != nil {
				break
			}
		}
		close(queue)
		wg.Wait()

		log.Printf("Ingested %d images into %s, %d failed", ingested.Load(), output, failed.Load())
		if walkErr != nil {
			return walkErr
		}
		if failed.Load() > 0 {
			return fmt.Errorf("%d images could not be ingested", failed.Load())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().UintP("jobs", "j", 1, "Amount of concurrent ingestors")
}
