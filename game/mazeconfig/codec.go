package mazeconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/beka-birhanu/vinom-arena/game"
	"gopkg.in/yaml.v3"
)

// rawBlock mirrors BuildingBlock with every field optional so that missing
// fields can be told apart from zero values.
type rawBlock struct {
	Position []float64 `json:"Position" yaml:"Position"`
	Rotation []float64 `json:"Rotation" yaml:"Rotation"`
	Type     *string   `json:"Type" yaml:"Type"`
}

type rawMap struct {
	MapSize               []float64   `json:"mapSize" yaml:"mapSize"`
	BaseBuildingBlockSize []float64   `json:"baseBuildingBlockSize" yaml:"baseBuildingBlockSize"`
	Walls                 *[]rawBlock `json:"Walls" yaml:"Walls"`
}

type rawConfig struct {
	Agents *[]rawBlock `json:"Agents" yaml:"Agents"`
	Goals  *[]rawBlock `json:"Goals" yaml:"Goals"`
	Map    *rawMap     `json:"Map" yaml:"Map"`
}

// Load parses a JSON config.
func Load(data []byte) (MazeConfig, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return MazeConfig{}, fmt.Errorf("%w: %v", game.ErrConfigParse, err)
	}
	return raw.validate()
}

// LoadYAML parses a YAML config.
func LoadYAML(data []byte) (MazeConfig, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return MazeConfig{}, fmt.Errorf("%w: %v", game.ErrConfigParse, err)
	}
	return raw.validate()
}

// LoadFile reads a config from path. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON.
func LoadFile(path string) (MazeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MazeConfig{}, fmt.Errorf("reading maze config %s: %w", path, err)
	}
	if isYAML(path) {
		return LoadYAML(data)
	}
	return Load(data)
}

// Encode renders cfg as indented JSON.
func Encode(cfg MazeConfig) ([]byte, error) {
	cfg.normalize()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeYAML renders cfg as YAML.
func EncodeYAML(cfg MazeConfig) ([]byte, error) {
	cfg.normalize()
	return yaml.Marshal(cfg)
}

// SaveFile writes cfg to path, creating parent directories as needed. The
// format follows the file extension like LoadFile.
func SaveFile(path string, cfg MazeConfig) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = EncodeYAML(cfg)
	} else {
		data, err = Encode(cfg)
	}
	if err != nil {
		return fmt.Errorf("encoding maze config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (r rawConfig) validate() (MazeConfig, error) {
	if r.Map == nil {
		return MazeConfig{}, missing("Map")
	}
	if r.Agents == nil {
		return MazeConfig{}, missing("Agents")
	}
	if r.Goals == nil {
		return MazeConfig{}, missing("Goals")
	}
	if r.Map.Walls == nil {
		return MazeConfig{}, missing("Map.Walls")
	}

	var cfg MazeConfig
	mapSize, err := fixed(r.Map.MapSize, 2, "Map.mapSize")
	if err != nil {
		return MazeConfig{}, err
	}
	copy(cfg.Map.MapSize[:], mapSize)

	blockSize, err := fixed(r.Map.BaseBuildingBlockSize, 3, "Map.baseBuildingBlockSize")
	if err != nil {
		return MazeConfig{}, err
	}
	copy(cfg.Map.BaseBuildingBlockSize[:], blockSize)

	if cfg.Map.Walls, err = blocks(*r.Map.Walls, "Map.Walls"); err != nil {
		return MazeConfig{}, err
	}
	if cfg.Agents, err = blocks(*r.Agents, "Agents"); err != nil {
		return MazeConfig{}, err
	}
	if cfg.Goals, err = blocks(*r.Goals, "Goals"); err != nil {
		return MazeConfig{}, err
	}

	return cfg, nil
}

func blocks(raw []rawBlock, field string) ([]BuildingBlock, error) {
	result := make([]BuildingBlock, 0, len(raw))
	for i, rb := range raw {
		name := fmt.Sprintf("%s[%d]", field, i)

		pos, err := fixed(rb.Position, 3, name+".Position")
		if err != nil {
			return nil, err
		}
		rot, err := fixed(rb.Rotation, 4, name+".Rotation")
		if err != nil {
			return nil, err
		}
		if rb.Type == nil {
			return nil, missing(name + ".Type")
		}

		var b BuildingBlock
		copy(b.Position[:], pos)
		copy(b.Rotation[:], rot)
		b.Type = *rb.Type
		result = append(result, b)
	}
	return result, nil
}

func fixed(values []float64, n int, field string) ([]float64, error) {
	if values == nil {
		return nil, missing(field)
	}
	if len(values) != n {
		return nil, fmt.Errorf("%w: %s must have %d numbers, got %d", game.ErrConfigParse, field, n, len(values))
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s holds a non-finite number", game.ErrConfigParse, field)
		}
	}
	return values, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing field %s", game.ErrConfigParse, field)
}
