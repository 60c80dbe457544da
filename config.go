package conveyor

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// maxSignatureBits is the widest signature the default mask build carries.
const maxSignatureBits = 64

// Config holds the runtime limits for one Context.
type Config struct {
	// MaxEntities caps the number of simultaneously live entities and
	// sizes the entity/slot index tables.
	MaxEntities int `toml:"max_entities"`

	// MaxComponentTypes is the signature width: one bit per registrable
	// component type. Must not exceed maxSignatureBits.
	MaxComponentTypes int `toml:"max_component_types"`

	// Logger receives structured diagnostics. Nil means no logging.
	Logger *zap.Logger `toml:"-"`
}

// DefaultConfig returns the stock limits: 1000 entities, 32 component types.
func DefaultConfig() Config {
	return Config{
		MaxEntities:       1000,
		MaxComponentTypes: 32,
	}
}

// LoadConfig reads limits from a TOML file, starting from DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxEntities <= 0 {
		return fmt.Errorf("max_entities must be positive, got %d", c.MaxEntities)
	}
	if c.MaxComponentTypes <= 0 {
		return fmt.Errorf("max_component_types must be positive, got %d", c.MaxComponentTypes)
	}
	if c.MaxComponentTypes > maxSignatureBits {
		return fmt.Errorf("max_component_types %d exceeds signature width %d",
			c.MaxComponentTypes, maxSignatureBits)
	}
	return nil
}
