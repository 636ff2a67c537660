package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

// Catalogue is the package/perk configuration loaded once at startup. It is
// read-only afterwards; repositories use Resolve to rehydrate stored
// package references.
type Catalogue struct {
	packages []*model.Package
	byID     map[int]*model.Package
}

func LoadCatalogue(path string) (*Catalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read packages file: %w", err)
	}

	var doc struct {
		Packages []*model.Package `yaml:"packages"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse packages file: %w", err)
	}

	return NewCatalogue(doc.Packages)
}

func NewCatalogue(packages []*model.Package) (*Catalogue, error) {
	byID := make(map[int]*model.Package, len(packages))
	for _, pkg := range packages {
		if pkg.ID == 0 {
			return nil, fmt.Errorf("package %q has no id", pkg.Name)
		}
		if _, ok := byID[pkg.ID]; ok {
			return nil, fmt.Errorf("duplicate package id %d", pkg.ID)
		}
		byID[pkg.ID] = pkg
	}
	return &Catalogue{
		packages: packages,
		byID:     byID,
	}, nil
}

func (c *Catalogue) All() []*model.Package {
	return c.packages
}

func (c *Catalogue) Resolve(id int) (*model.Package, error) {
	pkg, ok := c.byID[id]
	if !ok {
		return nil, model.ErrPackageNotFound
	}
	return pkg, nil
}
