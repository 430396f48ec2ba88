package build

import (
	"math"

	"statforge/internal/model"
)

const (
	DefaultHPFloor = 700.0

	hpBase           = 200.0
	hpPerVitality    = 8.0
	hpPerEndurance   = 3.0
	hpPerStrength    = 2.0
	fpBase           = 50.0
	fpPerSpirit      = 5.0
	fpPerWillpower   = 2.0
	critPerLuck      = 0.3
	critPerDexterity = 0.2
	accuracyBase     = 70.0
	accuracyPerSkill = 0.5
	willpowerPerSlot = 20.0
	fpPerSummonSlot  = 80.0
)

// Sheet is the fully scaled view of one allocation.
type Sheet struct {
	Values        map[model.Attribute]float64
	Aptitude      float64
	AptitudeBonus float64
	Derived       model.DerivedStats
}

func (s Sheet) Value(attr model.Attribute) float64 {
	return s.Values[attr]
}

// Sheet scales every attribute. Aptitude is resolved first and its bonus is
// then applied to the other eleven attributes.
func (c *Context) Sheet(a model.Allocation) Sheet {
	aptitude := c.Scaled(model.Aptitude, a[model.Aptitude], 0)
	bonus := AptitudeBonus(aptitude)
	values := make(map[model.Attribute]float64, len(model.Attributes))
	for _, attr := range model.Attributes {
		if attr == model.Aptitude {
			values[attr] = aptitude
			continue
		}
		values[attr] = c.Scaled(attr, a[attr], bonus)
	}
	return Sheet{
		Values:        values,
		Aptitude:      aptitude,
		AptitudeBonus: bonus,
		Derived:       Derive(values),
	}
}

// Derive computes the secondary stats the objectives reference.
func Derive(values map[model.Attribute]float64) model.DerivedStats {
	hp := hpBase + hpPerVitality*values[model.Vitality] + hpPerEndurance*values[model.Endurance] + hpPerStrength*values[model.Strength]
	fp := fpBase + fpPerSpirit*values[model.Spirit] + fpPerWillpower*values[model.Willpower]
	slots := int(math.Min(math.Floor(values[model.Willpower]/willpowerPerSlot), math.Floor(fp/fpPerSummonSlot)))
	if slots < 0 {
		slots = 0
	}
	return model.DerivedStats{
		HP:          hp,
		FP:          fp,
		CritChance:  critPerLuck*values[model.Luck] + critPerDexterity*values[model.Dexterity],
		Accuracy:    accuracyBase + accuracyPerSkill*values[model.Skill],
		SummonSlots: slots,
	}
}

// SummonWillpowerMinimum is the scaled willpower gating the requested slots.
func SummonWillpowerMinimum(slots int) float64 {
	return willpowerPerSlot * float64(slots)
}

// SummonFPMinimum is the FP needed to sustain the requested slots.
func SummonFPMinimum(slots int) float64 {
	return fpPerSummonSlot * float64(slots)
}

// HPFloor returns the configured floor, or the default when unset.
func HPFloor(minHP float64) float64 {
	if minHP <= 0 {
		return DefaultHPFloor
	}
	return minHP
}

// VitalityForHP estimates the scaled vitality needed to reach floor given the
// other HP contributors in values.
func VitalityForHP(floor float64, values map[model.Attribute]float64) float64 {
	rest := hpBase + hpPerEndurance*values[model.Endurance] + hpPerStrength*values[model.Strength]
	return (floor - rest) / hpPerVitality
}
