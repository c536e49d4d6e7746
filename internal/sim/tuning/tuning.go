package tuning

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const ProtocolVersion = "1.0"

// Solver modes for the light-distance relaxation.
const (
	SolverInPlace      = "in_place"
	SolverDoubleBuffer = "double_buffer"
)

var (
	ErrCameraCount = errors.New("exactly one camera must be configured")
	ErrBadField    = errors.New("invalid field configuration")
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Field   Field         `yaml:"field"`
	Camera  Camera        `yaml:"camera"`
	Cameras []CameraSpawn `yaml:"cameras"`
}

type Field struct {
	Size        int    `yaml:"size"`
	MaxSize     int    `yaml:"max_size"`
	Workers     int    `yaml:"workers"`
	LightPasses int    `yaml:"light_passes"`
	Solver      string `yaml:"solver"`

	Height HeightNoise `yaml:"height"`
	Cave   CaveNoise   `yaml:"cave"`
}

type HeightNoise struct {
	Basis       string  `yaml:"basis"`
	Seed        int64   `yaml:"seed"`
	Octaves     int     `yaml:"octaves"`
	Frequency   float64 `yaml:"frequency"`
	Lacunarity  float64 `yaml:"lacunarity"`
	Persistence float64 `yaml:"persistence"`
}

type CaveNoise struct {
	Seed          int64   `yaml:"seed"`
	Frequency     float64 `yaml:"frequency"`
	Octaves       int     `yaml:"octaves"`
	Cutoff        float64 `yaml:"cutoff"`
	RangeFunction string  `yaml:"range_function"`
	EnableRange   bool    `yaml:"enable_range"`
	Displacement  float64 `yaml:"displacement"`
}

type Camera struct {
	TickRateHz       int      `yaml:"tick_rate_hz"`
	MouseSensitivity float64  `yaml:"mouse_sensitivity"`
	Speed            float64  `yaml:"speed"`
	Viewport         Viewport `yaml:"viewport"`
}

type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type CameraSpawn struct {
	Name  string     `yaml:"name"`
	Spawn [3]float64 `yaml:"spawn"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: ProtocolVersion,
		Field: Field{
			Size:        256,
			MaxSize:     512,
			LightPasses: 16,
			Solver:      SolverInPlace,
			Height: HeightNoise{
				Basis:       "perlin",
				Octaves:     3,
				Frequency:   0.005,
				Lacunarity:  2.0943951023931953,
				Persistence: 0.25,
			},
			Cave: CaveNoise{
				Frequency:     0.04,
				Octaves:       3,
				Cutoff:        0.65,
				RangeFunction: "euclidean",
				EnableRange:   true,
				Displacement:  1,
			},
		},
		Camera: Camera{
			TickRateHz:       60,
			MouseSensitivity: 0.05,
			Speed:            8,
			Viewport:         Viewport{Width: 1920, Height: 1080},
		},
		Cameras: []CameraSpawn{{Name: "flycam", Spawn: [3]float64{16, 255, 16}}},
	}
}

// Load reads a YAML tuning file over Defaults(). The raw document is checked
// against the embedded schema before decoding.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := validateDocument(raw); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	f := t.Field
	maxSize := f.MaxSize
	if maxSize <= 0 {
		maxSize = 512
	}
	if f.Size <= 0 || f.Size > maxSize {
		return fmt.Errorf("%w: size %d outside 1..%d", ErrBadField, f.Size, maxSize)
	}
	if f.LightPasses < 0 {
		return fmt.Errorf("%w: light_passes %d", ErrBadField, f.LightPasses)
	}
	switch f.Solver {
	case "", SolverInPlace, SolverDoubleBuffer:
	default:
		return fmt.Errorf("%w: solver %q", ErrBadField, f.Solver)
	}
	if f.Cave.Frequency <= 0 {
		return fmt.Errorf("%w: cave frequency must be positive", ErrBadField)
	}
	if f.Height.Frequency <= 0 {
		return fmt.Errorf("%w: height frequency must be positive", ErrBadField)
	}
	if len(t.Cameras) != 1 {
		return fmt.Errorf("%w: got %d", ErrCameraCount, len(t.Cameras))
	}
	if t.Camera.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive")
	}
	return nil
}

// Hash identifies the bake produced by this field configuration. Workers and
// MaxSize do not change the output and are excluded.
func (f Field) Hash() string {
	f.Workers = 0
	f.MaxSize = 0
	if f.Solver == "" {
		f.Solver = SolverInPlace
	}
	b, _ := json.Marshal(f)
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum[:16])
}
