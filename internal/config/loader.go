// Package config loads the bridge configuration document and decodes its
// sections into typed structs.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Document is the raw configuration: top-level section name to value.
type Document map[string]any

// Load reads the document at path. The format follows the extension:
// .yaml/.yml, .json, anything else is parsed as TOML.
func Load(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(b, formatOf(path))
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return "toml"
	}
}

// Parse decodes data in the given format ("toml", "yaml" or "json").
func Parse(data []byte, format string) (Document, error) {
	doc := Document{}
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("toml decode: %w", err)
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("yaml decode: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("json decode: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}
	return doc, nil
}
