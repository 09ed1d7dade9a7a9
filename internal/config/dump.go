package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Dump writes cfg as YAML. The output can be fed back to Load through a
// .yaml file.
func Dump(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Map()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
