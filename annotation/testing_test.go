package annotation

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create folder: %v", err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 20, G: 40, B: 80, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}

// setupProject writes a config and two images, A (100x50) and B (200x100)
func setupProject(t *testing.T, extra string) *Config {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "test", "normal", "A.png"), 100, 50)
	writePNG(t, filepath.Join(dir, "test", "abnormal", "B.png"), 200, 100)
	config := `
meta:
  description: "Click the **lesion**."
raters:
  nam:
    name: Dr. Nam
    aliases: [drnam, doctor1, dr.nam]
  shin:
    name: Dr. Shin
` + extra
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	return cfg
}
