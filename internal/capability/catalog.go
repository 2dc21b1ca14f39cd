package capability

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var bundledCatalog []byte

// Format is one entry of the bundled format catalog.
type Format struct {
	Integration string   `yaml:"integration"`
	Extension   string   `yaml:"extension,omitempty"`
	Mime        []string `yaml:"mime"`
	Default     bool     `yaml:"default"`
}

// Catalog is a fixed list of format descriptors.
type Catalog struct {
	Formats []Format `yaml:"formats"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(bundledCatalog)
}

// LoadCatalog reads a catalog YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML, rejecting unknown fields.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for i, f := range c.Formats {
		if f.Integration == "" {
			return nil, fmt.Errorf("formats[%d]: integration is required", i)
		}
	}
	return &c, nil
}

// DefaultMimes returns the MIME types of the integration's default formats.
func (c *Catalog) DefaultMimes(id IntegrationID) MimeSet {
	var mimes []string
	if c != nil {
		for _, f := range c.Formats {
			if f.Integration == string(id) && f.Default {
				mimes = append(mimes, f.Mime...)
			}
		}
	}
	return NewMimeSet(mimes...)
}
