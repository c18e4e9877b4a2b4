// Package engine implements the cooperative scheduler: the frame-stepped
// thread pool, hat/broadcast dispatch, clone lifecycle, and the event loop
// that paces everything against a Clock.
package engine

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/tanema/scratchvm/conf"
)

// Config holds the tunables an embedding host can override; LoadConfig fills
// any field its file omits from DefaultConfig.
type Config struct {
	FPS         float64 `toml:"fps"`
	TurboMode   bool    `toml:"turbo_mode"`
	CloneLimit  int     `toml:"clone_limit"`
	StageWidth  int     `toml:"stage_width"`
	StageHeight int     `toml:"stage_height"`
	// SpriteFencing is carried for hosts that keep sprites inside the
	// stage; nothing in this module reads it.
	SpriteFencing bool `toml:"sprite_fencing"`
}

// DefaultConfig returns the conf package's baseline values.
func DefaultConfig() Config {
	return Config{
		FPS:         conf.DEFAULTFPS,
		CloneLimit:  conf.DEFAULTCLONELIMIT,
		StageWidth:  conf.DEFAULTSTAGEWIDTH,
		StageHeight: conf.DEFAULTSTAGEHEIGHT,
	}
}

// LoadConfig reads a TOML config file on top of DefaultConfig, so any field
// the file omits keeps its default. An explicit zero fps, stage_width or
// stage_height is also replaced by the default (zero is never intentional
// there); an explicit clone_limit of 0 is kept as written.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading engine config %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing engine config %s: %w", path, err)
	}
	if cfg.FPS == 0 {
		cfg.FPS = conf.DEFAULTFPS
	}
	if cfg.StageWidth == 0 {
		cfg.StageWidth = conf.DEFAULTSTAGEWIDTH
	}
	if cfg.StageHeight == 0 {
		cfg.StageHeight = conf.DEFAULTSTAGEHEIGHT
	}
	return cfg, nil
}
