// Package gamedata holds the read-only race, class and modifier tables the
// optimizer resolves selections against.
package gamedata

import (
	"errors"
	"fmt"
	"sort"

	"statforge/internal/model"
)

// ErrUnknownKey marks a selection that does not resolve against the catalog.
var ErrUnknownKey = errors.New("unknown catalog key")

type RaceFlags struct {
	IsHuman     bool
	IsHomunculi bool
}

type Subrace struct {
	Key          string
	Base         map[model.Attribute]int
	Homunculi    bool
	AllowedRaces []string
}

func (s Subrace) Allows(race string) bool {
	if len(s.AllowedRaces) == 0 {
		return true
	}
	for _, allowed := range s.AllowedRaces {
		if allowed == race {
			return true
		}
	}
	return false
}

type ClassBonus struct {
	Key              string
	Bonus            map[model.Attribute]int
	WeaponCategories []string
}

type ClassPassive struct {
	PerRank map[model.Attribute]int
	MaxRank int
}

// FlatBonus is a single-attribute toggle such as a legend extend or an
// astrology planet.
type FlatBonus struct {
	Attribute model.Attribute
	Amount    int
}

// Lookups is the keyed, read-only attribute model.
type Lookups interface {
	RaceFlags(race string) (RaceFlags, error)
	SubraceBase(subrace string) (Subrace, error)
	ClassBonus(class string) (ClassBonus, error)
	ClassPassive(class string) (ClassPassive, error)
	HistoryBonus(history string) (map[model.Attribute]int, error)
	LegendExtendBonus(key string) (FlatBonus, error)
	AstrologyBonus(planet string) (FlatBonus, error)
	WeaponScalingPriority(category string) ([]model.Attribute, error)
}

type Profiles interface {
	BuildType(key string) (model.BuildTypeProfile, error)
	BuildTypes() []model.BuildTypeProfile
}

// Catalog is the in-memory implementation of Lookups and Profiles.
type Catalog struct {
	races         map[string]RaceFlags
	subraces      map[string]Subrace
	classes       map[string]ClassBonus
	passives      map[string]ClassPassive
	histories     map[string]map[model.Attribute]int
	legendExtends map[string]FlatBonus
	astrology     map[string]FlatBonus
	weapons       map[string][]model.Attribute
	buildTypes    map[string]model.BuildTypeProfile
}

func newCatalog() *Catalog {
	return &Catalog{
		races:         map[string]RaceFlags{},
		subraces:      map[string]Subrace{},
		classes:       map[string]ClassBonus{},
		passives:      map[string]ClassPassive{},
		histories:     map[string]map[model.Attribute]int{},
		legendExtends: map[string]FlatBonus{},
		astrology:     map[string]FlatBonus{},
		weapons:       map[string][]model.Attribute{},
		buildTypes:    map[string]model.BuildTypeProfile{},
	}
}

func unknown(kind, key string) error {
	return fmt.Errorf("%w: %s %q", ErrUnknownKey, kind, key)
}

func (c *Catalog) RaceFlags(race string) (RaceFlags, error) {
	flags, ok := c.races[race]
	if !ok {
		return RaceFlags{}, unknown("race", race)
	}
	return flags, nil
}

func (c *Catalog) SubraceBase(subrace string) (Subrace, error) {
	s, ok := c.subraces[subrace]
	if !ok {
		return Subrace{}, unknown("subrace", subrace)
	}
	return s, nil
}

func (c *Catalog) ClassBonus(class string) (ClassBonus, error) {
	b, ok := c.classes[class]
	if !ok {
		return ClassBonus{}, unknown("class", class)
	}
	return b, nil
}

// ClassPassive returns an empty passive for known classes without one.
func (c *Catalog) ClassPassive(class string) (ClassPassive, error) {
	if _, ok := c.classes[class]; !ok {
		return ClassPassive{}, unknown("class", class)
	}
	return c.passives[class], nil
}

func (c *Catalog) HistoryBonus(history string) (map[model.Attribute]int, error) {
	if history == "" {
		return nil, nil
	}
	h, ok := c.histories[history]
	if !ok {
		return nil, unknown("history", history)
	}
	return h, nil
}

func (c *Catalog) LegendExtendBonus(key string) (FlatBonus, error) {
	b, ok := c.legendExtends[key]
	if !ok {
		return FlatBonus{}, unknown("legend extend", key)
	}
	return b, nil
}

func (c *Catalog) AstrologyBonus(planet string) (FlatBonus, error) {
	b, ok := c.astrology[planet]
	if !ok {
		return FlatBonus{}, unknown("planet", planet)
	}
	return b, nil
}

func (c *Catalog) WeaponScalingPriority(category string) ([]model.Attribute, error) {
	ranked, ok := c.weapons[category]
	if !ok {
		return nil, unknown("weapon category", category)
	}
	return append([]model.Attribute(nil), ranked...), nil
}

func (c *Catalog) BuildType(key string) (model.BuildTypeProfile, error) {
	p, ok := c.buildTypes[key]
	if !ok {
		return model.BuildTypeProfile{}, unknown("build type", key)
	}
	return p, nil
}

// BuildTypes lists profiles sorted by key.
func (c *Catalog) BuildTypes() []model.BuildTypeProfile {
	keys := make([]string, 0, len(c.buildTypes))
	for key := range c.buildTypes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]model.BuildTypeProfile, 0, len(keys))
	for _, key := range keys {
		out = append(out, c.buildTypes[key])
	}
	return out
}
