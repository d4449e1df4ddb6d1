package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrSubjectNotInCatalog はカタログに教科コードが無い場合のエラー
var ErrSubjectNotInCatalog = errors.New("subject not found in catalog")

// CatalogEntry はカタログ内の1教科
type CatalogEntry struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	PDF     string `yaml:"pdf"`
	Version int    `yaml:"version,omitempty"`
}

// Catalog は取り込み対象の教科一覧
type Catalog struct {
	Subjects []CatalogEntry `yaml:"subjects"`
}

// LoadCatalog は YAML の教科カタログを読み込みます
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog は YAML バイト列をカタログとして解釈します
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(catalog.Subjects))
	for i, s := range catalog.Subjects {
		if s.Code == "" || s.PDF == "" {
			return nil, fmt.Errorf("catalog entry %d: code and pdf are required", i)
		}
		if _, dup := seen[s.Code]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate code %q", i, s.Code)
		}
		seen[s.Code] = struct{}{}
	}
	sort.SliceStable(catalog.Subjects, func(i, j int) bool {
		return catalog.Subjects[i].Code < catalog.Subjects[j].Code
	})
	return &catalog, nil
}

// Find は教科コードでエントリを探します
func (c *Catalog) Find(code string) (CatalogEntry, error) {
	for _, s := range c.Subjects {
		if s.Code == code {
			return s, nil
		}
	}
	return CatalogEntry{}, fmt.Errorf("%s: %w", code, ErrSubjectNotInCatalog)
}
