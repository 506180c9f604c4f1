package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/book-search/pkg/lsa"
	"github.com/JaimeStill/book-search/pkg/pca"
)

const (
	EnvDatasetDir      = "DATASET_DIR"
	EnvDatasetManifest = "DATASET_MANIFEST"

	EnvIndexDocumentComponents = "INDEX_DOCUMENT_COMPONENTS"
	EnvIndexImageComponents    = "INDEX_IMAGE_COMPONENTS"
	EnvIndexDisableCache       = "INDEX_DISABLE_CACHE"
)

// DatasetConfig locates the book dataset on disk.
type DatasetConfig struct {
	// Dir holds the manifest, cover images and text files. Default: "dataset".
	Dir string `toml:"dir"`
	// Manifest is the manifest file name within Dir. Default: "mapper.json".
	Manifest string `toml:"manifest"`
}

func (c *DatasetConfig) Finalize() error {
	if c.Dir == "" {
		c.Dir = "dataset"
	}
	if c.Manifest == "" {
		c.Manifest = "mapper.json"
	}
	if v := os.Getenv(EnvDatasetDir); v != "" {
		c.Dir = v
	}
	if v := os.Getenv(EnvDatasetManifest); v != "" {
		c.Manifest = v
	}
	return nil
}

func (c *DatasetConfig) Merge(overlay *DatasetConfig) {
	if overlay.Dir != "" {
		c.Dir = overlay.Dir
	}
	if overlay.Manifest != "" {
		c.Manifest = overlay.Manifest
	}
}

// IndexConfig controls how the similarity models are built and cached.
type IndexConfig struct {
	DocumentComponents int  `toml:"document_components"`
	ImageComponents    int  `toml:"image_components"`
	ImageWidth         int  `toml:"image_width"`
	ImageHeight        int  `toml:"image_height"`
	DisableCache       bool `toml:"disable_cache"`
}

// ImageShape returns the configured image size.
func (c *IndexConfig) ImageShape() pca.Shape {
	return pca.Shape{Width: c.ImageWidth, Height: c.ImageHeight}
}

func (c *IndexConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if c.DocumentComponents < 1 {
		return fmt.Errorf("document_components must be positive")
	}
	if c.ImageComponents < 1 {
		return fmt.Errorf("image_components must be positive")
	}
	if c.ImageWidth < 1 || c.ImageHeight < 1 {
		return fmt.Errorf("invalid image size %dx%d", c.ImageWidth, c.ImageHeight)
	}
	return nil
}

func (c *IndexConfig) Merge(overlay *IndexConfig) {
	if overlay.DocumentComponents != 0 {
		c.DocumentComponents = overlay.DocumentComponents
	}
	if overlay.ImageComponents != 0 {
		c.ImageComponents = overlay.ImageComponents
	}
	if overlay.ImageWidth != 0 {
		c.ImageWidth = overlay.ImageWidth
	}
	if overlay.ImageHeight != 0 {
		c.ImageHeight = overlay.ImageHeight
	}
	if overlay.DisableCache {
		c.DisableCache = true
	}
}

func (c *IndexConfig) loadDefaults() {
	if c.DocumentComponents == 0 {
		c.DocumentComponents = lsa.DefaultComponents
	}
	if c.ImageComponents == 0 {
		c.ImageComponents = pca.DefaultComponents
	}
	if c.ImageWidth == 0 {
		c.ImageWidth = pca.DefaultShape.Width
	}
	if c.ImageHeight == 0 {
		c.ImageHeight = pca.DefaultShape.Height
	}
}

func (c *IndexConfig) loadEnv() {
	if v := os.Getenv(EnvIndexDocumentComponents); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DocumentComponents = n
		}
	}
	if v := os.Getenv(EnvIndexImageComponents); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ImageComponents = n
		}
	}
	if v := os.Getenv(EnvIndexDisableCache); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DisableCache = b
		}
	}
}
