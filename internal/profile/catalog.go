package profile

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"intentrouter/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var ErrEmptyCatalog = errors.New("profile: category has no example phrases")

// Catalog is the curated data the profiles are built from.
// Tokens[c] is nil when the category has no curated token list.
type Catalog struct {
	Examples [domain.NumCategories][]string
	Tokens   [domain.NumCategories][]string
}

type catalogFile struct {
	Categories map[string]struct {
		Examples []string `yaml:"examples"`
		Tokens   []string `yaml:"tokens"`
	} `yaml:"categories"`
}

// DefaultCatalog returns the catalog shipped with the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file. An empty path yields the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML. Every category needs at
// least one example phrase.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	out := &Catalog{}
	for name, entry := range f.Categories {
		c, ok := domain.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("parse catalog: unknown category %q", name)
		}
		for _, ex := range entry.Examples {
			if ex = strings.TrimSpace(ex); ex != "" {
				out.Examples[c] = append(out.Examples[c], ex)
			}
		}
		if len(entry.Tokens) > 0 {
			out.Tokens[c] = append([]string(nil), entry.Tokens...)
		}
	}
	for _, c := range domain.Categories() {
		if len(out.Examples[c]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyCatalog, c)
		}
	}
	return out, nil
}

// Fingerprint hashes the catalog content. Two catalogs with the same
// examples and tokens share a fingerprint.
func (c *Catalog) Fingerprint() string {
	h := sha256.New()
	for _, cat := range domain.Categories() {
		fmt.Fprintf(h, "%s\x00", cat)
		for _, ex := range c.Examples[cat] {
			fmt.Fprintf(h, "e:%s\x00", ex)
		}
		if c.Tokens[cat] != nil {
			fmt.Fprintf(h, "t:%d\x00", len(c.Tokens[cat]))
			for _, tok := range c.Tokens[cat] {
				fmt.Fprintf(h, "%s\x00", tok)
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
