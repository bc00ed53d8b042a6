package menu

import (
	"fmt"
	"math"
	"strings"
)

type Category string

const (
	CategoryCoffee Category = "coffee"
	CategoryTea    Category = "tea"
	CategoryPastry Category = "pastry"
)

type Size string

const (
	SizeSmall Size = "small"
	SizeLarge Size = "large"
)

type Temperature string

const (
	TempHot  Temperature = "hot"
	TempIced Temperature = "iced"
)

type Milk string

const (
	MilkWhole  Milk = "whole"
	MilkSkim   Milk = "skim"
	MilkOat    Milk = "oat"
	MilkAlmond Milk = "almond"
)

// MilkPolicy says whether a drink needs a milk choice before it can be made.
type MilkPolicy string

const (
	MilkRequired MilkPolicy = "required"
	MilkOptional MilkPolicy = "optional"
	MilkNone     MilkPolicy = "none"
)

// AddonKind groups add-ons that share a cap or a legality rule.
type AddonKind string

const (
	KindShot      AddonKind = "shot"
	KindSyrup     AddonKind = "syrup"
	KindIce       AddonKind = "ice"
	KindSweetness AddonKind = "sweetness"
)

// Money is an amount in cents.
type Money int64

// FromFloat converts a dollar amount such as 4.5 to cents, rounding half away from zero.
func FromFloat(dollars float64) Money {
	return Money(math.Round(dollars * 100))
}

func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s$%d.%02d", sign, m/100, m%100)
}

// Dollars returns the amount as a float for transports that expect a number.
func (m Money) Dollars() float64 {
	return float64(m) / 100
}

// Item is a single catalog entry. Items are immutable once the catalog is built.
type Item struct {
	ID           string
	Name         string
	Category     Category
	Small        Money
	Large        Money
	Price        Money
	Temperatures []Temperature
	Milk         MilkPolicy
	Modifiers    []string
	Aliases      []string
}

func (it Item) IsPastry() bool { return it.Category == CategoryPastry }

func (it Item) IsDrink() bool { return !it.IsPastry() }

// HasSizes reports whether the item is sold in small and large.
func (it Item) HasSizes() bool { return it.IsDrink() }

// NeedsTemperature reports whether a temperature must be chosen for the item.
// An item with a single legal temperature never needs it asked.
func (it Item) NeedsTemperature() bool { return len(it.Temperatures) > 1 }

// AllowsTemperature reports whether t is legal for the item.
func (it Item) AllowsTemperature(t Temperature) bool {
	for _, legal := range it.Temperatures {
		if legal == t {
			return true
		}
	}
	return false
}

// Addon is a priced or free modifier that can be put on a drink.
type Addon struct {
	Name    string
	Kind    AddonKind
	Price   Money
	Aliases []string
}

// Modifier is an add-on selection on a line, with a count for pumps and shots.
type Modifier struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Limits caps per-drink add-on counts.
type Limits struct {
	MaxExtraShots int
	MaxSyrupPumps int
}

// DefaultLimits are the caps used in the voice flow.
var DefaultLimits = Limits{MaxExtraShots: 2, MaxSyrupPumps: 4}

// Normalize lower-cases a phrase, drops punctuation and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\'':
			return r
		case r == '-' || r == '_' || r == '\t' || r == '\n':
			return ' '
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseSize maps a spoken size to a Size.
func ParseSize(s string) (Size, bool) {
	switch Normalize(s) {
	case "small", "sm", "12 oz", "12oz", "12 ounce", "12 ounces":
		return SizeSmall, true
	case "large", "lg", "big", "16 oz", "16oz", "16 ounce", "16 ounces":
		return SizeLarge, true
	}
	return "", false
}

// ParseTemperature maps a spoken temperature to a Temperature.
func ParseTemperature(s string) (Temperature, bool) {
	switch Normalize(s) {
	case "hot":
		return TempHot, true
	case "iced", "ice", "on ice":
		return TempIced, true
	}
	return "", false
}

// ParseMilk maps a spoken milk choice to a Milk.
func ParseMilk(s string) (Milk, bool) {
	n := strings.TrimSuffix(Normalize(s), " milk")
	switch n {
	case "whole", "regular":
		return MilkWhole, true
	case "skim", "nonfat", "non fat":
		return MilkSkim, true
	case "oat", "oatmilk":
		return MilkOat, true
	case "almond":
		return MilkAlmond, true
	}
	return "", false
}

// Label renders a value the way it is printed on a ticket, e.g. "Large" or "Oat milk".
func Label(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// MilkLabel renders a milk choice as printed on a ticket.
func MilkLabel(m Milk) string {
	if m == "" {
		return ""
	}
	return Label(string(m)) + " milk"
}
