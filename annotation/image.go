package annotation

import (
	"crypto/sha256"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/lewtec/apontador/internal/domain"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage loads the raw pixel frame. EXIF orientation is not applied, so the
// decoded bounds match DecodeImageSize and stored points stay in file pixels.
func DecodeImage(filepath string) (image.Image, error) {
	return imaging.Open(filepath)
}

// DecodeImageSize reads the dimensions of an image without decoding its pixels
func DecodeImageSize(filepath string) (int, int, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// ItemID is the file name without directory and extension
func ItemID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ListItems enumerates the images matched by images.pattern inside images.dir, in
// lexical path order. Files that are not images are skipped.
func ListItems(config *Config) (*domain.ItemSet, error) {
	dir := config.ImagesDir()
	matches, err := filepath.Glob(filepath.Join(dir, config.Images.Pattern))
	if err != nil {
		return nil, fmt.Errorf("while listing images with pattern '%s': %w", config.Images.Pattern, err)
	}
	items := make([]domain.Item, 0, len(matches))
	for _, match := range matches {
		if stat, err := os.Stat(match); err != nil || stat.IsDir() {
			continue
		}
		w, h, err := DecodeImageSize(match)
		if err != nil {
			log.Printf("ListItems: skipping '%s': %s", match, err)
			continue
		}
		item := domain.Item{
			ID:         ItemID(match),
			SourcePath: match,
			Width:      w,
			Height:     h,
		}
		item.OverlayPath = findOverlay(config, dir, item.ID)
		items = append(items, item)
	}
	log.Printf("ListItems: %d images in %s", len(items), dir)
	return domain.NewItemSet(items)
}

func findOverlay(config *Config, dir, id string) string {
	if config.Images.Overlay == "" {
		return ""
	}
	pattern := filepath.Join(dir, strings.ReplaceAll(config.Images.Overlay, "{id}", id))
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// IngestImage writes img as a PNG named after id inside outputDir. It returns the sha256
// of the written file.
func IngestImage(img image.Image, outputDir, id string) (string, error) {
	tempFile := filepath.Join(outputDir, fmt.Sprintf(".%s.png.tmp", uuid.New()))
	f, err := os.Create(tempFile)
	if err != nil {
		return "", err
	}
	hasher := sha256.New()
	w := io.MultiWriter(f, hasher)
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		f.Close()
		os.Remove(tempFile)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return "", err
	}
	if err := os.Rename(tempFile, filepath.Join(outputDir, id+".png")); err != nil {
		os.Remove(tempFile)
		return "", err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
