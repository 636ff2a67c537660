package model

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type PerkType string

const (
	PerkPriorityQueue PerkType = "PRIORITY_QUEUE"
	PerkDiscordRole   PerkType = "DISCORD_ROLE"
	PerkFreetext      PerkType = "FREETEXT_ONLY"
)

// Perk is a tagged union; exactly the fields for Type are set. Dispatch
// happens by switching on Type, all other fields are ignored.
type Perk struct {
	Type PerkType `yaml:"type"`

	// PRIORITY_QUEUE
	CFToolsServerID string `yaml:"cftoolsServerId,omitempty"`
	Days            int    `yaml:"days,omitempty"`

	// DISCORD_ROLE
	RoleID string `yaml:"roleId,omitempty"`

	// FREETEXT_ONLY
	Text string `yaml:"text,omitempty"`
}

type Price struct {
	Currency string
	Amount   decimal.Decimal
}

// UnmarshalYAML parses the amount through decimal to keep money exact;
// float64 would mangle values like 9.99.
func (p *Price) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Currency string `yaml:"currency"`
		Amount   string `yaml:"amount"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("parse price amount %q: %w", raw.Amount, err)
	}

	p.Currency = raw.Currency
	p.Amount = amount
	return nil
}

// Package is a purchasable bundle of perks from the catalogue file.
type Package struct {
	ID           int    `yaml:"id"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Price        Price  `yaml:"price"`
	Perks        []Perk `yaml:"perks"`
	Subscribable bool   `yaml:"subscribable"`

	// Removed marks a tombstone for a package retired from the catalogue.
	Removed bool `yaml:"-"`
}

// TombstonePackage stands in for a package no longer in the catalogue, so
// historical orders stay readable. Redemption refuses tombstones.
func TombstonePackage(id int) *Package {
	return &Package{
		ID:      id,
		Name:    "(removed package)",
		Removed: true,
	}
}
