package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ModelDefaults maps a provider name to the model used when neither the
// --model flag nor config.toml names one.
var ModelDefaults = map[string]string{
	"openai": "gpt-4o-mini",
	"gemini": "gemini-3-flash-preview",
	"ollama": "llama3",
}

type Config struct {
	AI      AI      `toml:"ai"`
	Output  Output  `toml:"output"`
	Clip    Clip    `toml:"clip"`
	Silence Silence `toml:"silence"`
	Framing Framing `toml:"framing"`
	Render  Render  `toml:"render"`
	Whisper Whisper `toml:"whisper"`
}

type AI struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
}

type Output struct {
	Dir           string `toml:"dir"`
	RemoveSilence bool   `toml:"remove_silence"`
}

type Clip struct {
	MinSeconds float64 `toml:"min_seconds"`
	MaxSeconds float64 `toml:"max_seconds"`
}

type Silence struct {
	NoiseFloorDb float64  `toml:"noise_floor_db"`
	MinSilence   Duration `toml:"min_silence"`
	MergeGap     Duration `toml:"merge_gap"`
	MinKeep      Duration `toml:"min_keep"`

	// MaxRemovedFraction guards against a misconfigured noise floor: when
	// silence removal would drop more than this share of a clip, removal is
	// skipped for that clip.
	MaxRemovedFraction float64 `toml:"max_removed_fraction"`
}

type Framing struct {
	SampleFPS    float64  `toml:"sample_fps"`
	SmoothWindow Duration `toml:"smooth_window"`
	CascadeFile  string   `toml:"cascade_file"`
}

type Render struct {
	Speed         float64  `toml:"speed"`
	VAAPIDevice   string   `toml:"vaapi_device"`
	DisableVAAPI  bool     `toml:"disable_vaapi"`
	EncodeTimeout Duration `toml:"encode_timeout"`
	Workers       int      `toml:"workers"`
}

type Whisper struct {
	Bin   string `toml:"bin"`
	Model string `toml:"model"`
}

// Duration is a TOML-friendly time.Duration accepting "500ms" style strings.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func Default() Config {
	return Config{
		Output: Output{Dir: "./shorts_clips"},
		Clip:   Clip{MinSeconds: 15, MaxSeconds: 60},
		Silence: Silence{
			NoiseFloorDb:       -30,
			MinSilence:         Duration(500 * time.Millisecond),
			MergeGap:           Duration(500 * time.Millisecond),
			MinKeep:            Duration(50 * time.Millisecond),
			MaxRemovedFraction: 0.8,
		},
		Framing: Framing{
			SampleFPS:    3,
			SmoothWindow: Duration(1500 * time.Millisecond),
		},
		Render: Render{
			Speed:         1.2,
			VAAPIDevice:   "/dev/dri/renderD128",
			EncodeTimeout: Duration(30 * time.Minute),
		},
		Whisper: Whisper{
			Bin:   ".cache/bin/whisper.cpp",
			Model: ".cache/models/ggml-base.bin",
		},
	}
}

// Load reads config from an explicit path, or from the first of
// ./config.toml and ~/.config/clipcut/config.toml that exists. A missing
// config file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{"config.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "clipcut", "config.toml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func (c Config) Validate() error {
	if c.Clip.MinSeconds <= 0 {
		return errors.New("clip.min_seconds must be > 0")
	}
	if c.Clip.MaxSeconds < c.Clip.MinSeconds {
		return errors.New("clip.max_seconds must be >= clip.min_seconds")
	}
	if c.Silence.MinSilence <= 0 {
		return errors.New("silence.min_silence must be > 0")
	}
	if c.Silence.MaxRemovedFraction <= 0 || c.Silence.MaxRemovedFraction > 1 {
		return errors.New("silence.max_removed_fraction must be in (0, 1]")
	}
	if c.Framing.SampleFPS <= 0 {
		return errors.New("framing.sample_fps must be > 0")
	}
	if c.Render.Speed <= 0 {
		return errors.New("render.speed must be > 0")
	}
	if c.Render.Workers < 0 {
		return errors.New("render.workers must be >= 0")
	}
	if p := c.AI.Provider; p != "" {
		if _, ok := ModelDefaults[p]; !ok {
			return fmt.Errorf("unknown ai.provider %q", p)
		}
	}
	return nil
}
