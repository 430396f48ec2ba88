package gamedata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"statforge/internal/model"
)

//go:embed data/catalog.json
var defaultCatalogJSON []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

// DefaultCatalog parses the embedded tables. The embedded data is validated by
// tests, so a failure here is a build defect.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(defaultCatalogJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return LoadCatalog(data)
}

// LoadCatalog parses catalog JSON. Attribute names are validated; everything
// else missing from a record defaults to zero.
func LoadCatalog(data []byte) (*Catalog, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidCatalog)
	}
	root := gjson.ParseBytes(data)
	c := newCatalog()
	var firstErr error
	fail := func(err error) bool {
		if firstErr == nil {
			firstErr = err
		}
		return false
	}

	root.Get("races").ForEach(func(key, v gjson.Result) bool {
		c.races[key.String()] = RaceFlags{
			IsHuman:     v.Get("human").Bool(),
			IsHomunculi: v.Get("homunculi").Bool(),
		}
		return true
	})

	root.Get("subraces").ForEach(func(key, v gjson.Result) bool {
		base, err := readAttributeInts(v.Get("base"))
		if err != nil {
			return fail(fmt.Errorf("subrace %s: %w", key.String(), err))
		}
		c.subraces[key.String()] = Subrace{
			Key:          key.String(),
			Base:         base,
			Homunculi:    v.Get("homunculi").Bool(),
			AllowedRaces: readStrings(v.Get("allowed_races")),
		}
		return true
	})

	root.Get("classes").ForEach(func(key, v gjson.Result) bool {
		bonus, err := readAttributeInts(v.Get("bonus"))
		if err != nil {
			return fail(fmt.Errorf("class %s: %w", key.String(), err))
		}
		c.classes[key.String()] = ClassBonus{
			Key:              key.String(),
			Bonus:            bonus,
			WeaponCategories: readStrings(v.Get("weapons")),
		}
		if passive := v.Get("passive"); passive.Exists() {
			perRank, err := readAttributeInts(passive.Get("per_rank"))
			if err != nil {
				return fail(fmt.Errorf("class %s passive: %w", key.String(), err))
			}
			c.passives[key.String()] = ClassPassive{
				PerRank: perRank,
				MaxRank: int(passive.Get("max_rank").Int()),
			}
		}
		return true
	})

	root.Get("histories").ForEach(func(key, v gjson.Result) bool {
		bonus, err := readAttributeInts(v)
		if err != nil {
			return fail(fmt.Errorf("history %s: %w", key.String(), err))
		}
		c.histories[key.String()] = bonus
		return true
	})

	for _, table := range []struct {
		path string
		into map[string]FlatBonus
	}{
		{path: "legend_extends", into: c.legendExtends},
		{path: "astrology", into: c.astrology},
	} {
		root.Get(table.path).ForEach(func(key, v gjson.Result) bool {
			attr, err := model.ParseAttribute(v.Get("attribute").String())
			if err != nil {
				return fail(fmt.Errorf("%s %s: %w", table.path, key.String(), err))
			}
			amount := 1
			if a := v.Get("amount"); a.Exists() {
				amount = int(a.Int())
			}
			table.into[key.String()] = FlatBonus{Attribute: attr, Amount: amount}
			return true
		})
	}

	root.Get("weapons").ForEach(func(key, v gjson.Result) bool {
		ranked := make([]model.Attribute, 0, 4)
		for _, name := range readStrings(v) {
			attr, err := model.ParseAttribute(name)
			if err != nil {
				return fail(fmt.Errorf("weapon %s: %w", key.String(), err))
			}
			ranked = append(ranked, attr)
		}
		c.weapons[key.String()] = ranked
		return true
	})

	root.Get("build_types").ForEach(func(key, v gjson.Result) bool {
		profile, err := readBuildType(key.String(), v)
		if err != nil {
			return fail(err)
		}
		c.buildTypes[profile.Key] = profile
		return true
	})

	if firstErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, firstErr)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return c, nil
}

func readBuildType(key string, v gjson.Result) (model.BuildTypeProfile, error) {
	profile := model.BuildTypeProfile{
		Key:            key,
		Name:           v.Get("name").String(),
		Description:    v.Get("description").String(),
		WeaponCategory: v.Get("weapon").String(),
		Priorities:     map[model.Attribute]float64{},
		Thresholds:     map[model.Attribute]model.Threshold{},
	}
	if profile.Name == "" {
		profile.Name = key
	}
	var err error
	v.Get("priorities").ForEach(func(name, p gjson.Result) bool {
		attr, perr := model.ParseAttribute(name.String())
		if perr != nil {
			err = fmt.Errorf("build type %s: %w", key, perr)
			return false
		}
		profile.Priorities[attr] = p.Float()
		return true
	})
	if err != nil {
		return model.BuildTypeProfile{}, err
	}
	v.Get("thresholds").ForEach(func(name, t gjson.Result) bool {
		attr, perr := model.ParseAttribute(name.String())
		if perr != nil {
			err = fmt.Errorf("build type %s: %w", key, perr)
			return false
		}
		profile.Thresholds[attr] = model.Threshold{
			Min:   t.Get("min").Float(),
			Ideal: t.Get("ideal").Float(),
			Max:   t.Get("max").Float(),
		}
		return true
	})
	if err != nil {
		return model.BuildTypeProfile{}, err
	}
	return profile, nil
}

func readAttributeInts(v gjson.Result) (map[model.Attribute]int, error) {
	out := map[model.Attribute]int{}
	var err error
	v.ForEach(func(name, amount gjson.Result) bool {
		attr, perr := model.ParseAttribute(name.String())
		if perr != nil {
			err = perr
			return false
		}
		out[attr] = int(amount.Int())
		return true
	})
	return out, err
}

func readStrings(v gjson.Result) []string {
	var out []string
	v.ForEach(func(_, item gjson.Result) bool {
		out = append(out, item.String())
		return true
	})
	return out
}

func (c *Catalog) validate() error {
	for key, s := range c.subraces {
		for _, race := range s.AllowedRaces {
			if _, ok := c.races[race]; !ok {
				return fmt.Errorf("subrace %s allows unknown race %s", key, race)
			}
		}
	}
	for key, class := range c.classes {
		for _, category := range class.WeaponCategories {
			if _, ok := c.weapons[category]; !ok {
				return fmt.Errorf("class %s uses unknown weapon category %s", key, category)
			}
		}
	}
	for key, profile := range c.buildTypes {
		if profile.WeaponCategory == "" {
			continue
		}
		if _, ok := c.weapons[profile.WeaponCategory]; !ok {
			return fmt.Errorf("build type %s uses unknown weapon category %s", key, profile.WeaponCategory)
		}
	}
	return nil
}
