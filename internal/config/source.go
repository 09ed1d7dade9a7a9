package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ParseKeyValue reads the plain "KEY value" format used by config.cfg files.
// One assignment per line; "KEY=value" is accepted too. Everything after a
// '#' is a comment. Later assignments override earlier ones.
func ParseKeyValue(r io.Reader) (map[string]string, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var key, value string
		if k, v, ok := strings.Cut(line, "="); ok {
			key, value = strings.TrimSpace(k), strings.TrimSpace(v)
		} else {
			fields := strings.Fields(line)
			key = fields[0]
			value = strings.Join(fields[1:], " ")
		}
		if key == "" {
			return nil, fmt.Errorf("line %d: missing key", lineNo)
		}
		if value == "" {
			return nil, fmt.Errorf("line %d: missing value for %s", lineNo, key)
		}
		values[strings.ToUpper(key)] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// readSource loads path into v. Structured formats go through viper's own
// decoders, anything else is treated as key/value text.
func readSource(v *viper.Viper, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	kv, err := ParseKeyValue(f)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	m := make(map[string]any, len(kv))
	for k, val := range kv {
		m[strings.ToLower(k)] = val
	}
	return v.MergeConfigMap(m)
}
