package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/dali/resource"
)

// Config holds the settings shared by every subcommand. A JSON file
// supplies defaults; flags override it.
type Config struct {
	// Resource storage
	Root     string `json:"root"`
	Resource string `json:"resource"`
	Size     int    `json:"size"`
	Format   string `json:"format"`

	// Rendering
	Device    string `json:"device"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	OutWidth  int    `json:"out_width"`
	OutHeight int    `json:"out_height"`
	Output    string `json:"output"`
	Colormap  string `json:"colormap"`
	Passes    int    `json:"passes"`
	Seed      uint64 `json:"seed"`
	Frames    int    `json:"frames"`
	Surface   string `json:"surface"`
	MemoryMB  int    `json:"memory_mb"`

	Verbose bool `json:"verbose"`
}

// LoadConfig reads a JSON config file. Fields not set in the file keep
// their zero values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Override copies every non-zero field of flags into c.
func (c *Config) Override(flags Config) {
	setString(&c.Root, flags.Root)
	setString(&c.Resource, flags.Resource)
	setString(&c.Format, flags.Format)
	setString(&c.Device, flags.Device)
	setString(&c.Output, flags.Output)
	setString(&c.Colormap, flags.Colormap)
	setString(&c.Surface, flags.Surface)
	setInt(&c.Size, flags.Size)
	setInt(&c.Width, flags.Width)
	setInt(&c.Height, flags.Height)
	setInt(&c.OutWidth, flags.OutWidth)
	setInt(&c.OutHeight, flags.OutHeight)
	setInt(&c.Passes, flags.Passes)
	setInt(&c.Frames, flags.Frames)
	setInt(&c.MemoryMB, flags.MemoryMB)
	if flags.Seed != 0 {
		c.Seed = flags.Seed
	}
	c.Verbose = c.Verbose || flags.Verbose
}

// Resolve fills empty fields with defaults.
func (c *Config) Resolve() error {
	if c.Root == "" {
		root, err := resource.DefaultRoot()
		if err != nil {
			return err
		}
		c.Root = root
	}
	if c.Resource == "" {
		c.Resource = "import-512"
	}
	// A negative size imports files unchanged.
	if c.Size == 0 {
		c.Size = 512
	}
	if c.Format == "" {
		c.Format = "png"
	}
	if c.Device == "" {
		c.Device = "software"
	}
	c.Device = strings.ToLower(c.Device)
	if c.Width <= 0 {
		c.Width = 900
	}
	if c.Height <= 0 {
		c.Height = 900
	}
	if c.OutWidth <= 0 {
		c.OutWidth = c.Width
	}
	if c.OutHeight <= 0 {
		c.OutHeight = c.Height
	}
	if c.Output == "" {
		c.Output = "dali.png"
	}
	if c.Passes <= 0 {
		c.Passes = 48
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.Surface == "" {
		c.Surface = "image"
	}
	return nil
}

// ResourceDir is the storage directory of the configured resource.
func (c *Config) ResourceDir() string { return filepath.Join(c.Root, c.Resource) }

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
