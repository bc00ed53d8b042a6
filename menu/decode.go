package menu

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

type fileLimits struct {
	MaxExtraShots int `yaml:"max_extra_shots"`
	MaxSyrupPumps int `yaml:"max_syrup_pumps"`
}

type fileAddon struct {
	Name    string    `yaml:"name"`
	Kind    AddonKind `yaml:"kind"`
	Price   float64   `yaml:"price"`
	Aliases []string  `yaml:"aliases"`
}

type fileItem struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Category     Category      `yaml:"category"`
	Small        float64       `yaml:"small"`
	Large        float64       `yaml:"large"`
	Price        float64       `yaml:"price"`
	Temperatures []Temperature `yaml:"temperatures"`
	Milk         MilkPolicy    `yaml:"milk"`
	Modifiers    []string      `yaml:"modifiers"`
	Aliases      []string      `yaml:"aliases"`
}

type file struct {
	Limits    fileLimits          `yaml:"limits"`
	Milks     map[Milk]float64    `yaml:"milks"`
	Modifiers []fileAddon         `yaml:"modifiers"`
	Groups    map[string][]string `yaml:"modifier_groups"`
	Items     []fileItem          `yaml:"items"`
	Ambiguous map[string][]string `yaml:"ambiguous"`
}

// Decode builds a catalog from a YAML (or JSON) document. Item modifier lists
// may reference a named group with "@group".
func Decode(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("decode menu: no items")
	}

	spec := Spec{
		Milks:     make(map[Milk]Money, len(f.Milks)),
		Ambiguous: f.Ambiguous,
		Limits:    Limits{MaxExtraShots: f.Limits.MaxExtraShots, MaxSyrupPumps: f.Limits.MaxSyrupPumps},
	}
	for m, price := range f.Milks {
		if _, ok := ParseMilk(string(m)); !ok {
			return nil, fmt.Errorf("decode menu: unknown milk %q", m)
		}
		spec.Milks[m] = FromFloat(price)
	}
	for _, a := range f.Modifiers {
		spec.Addons = append(spec.Addons, Addon{
			Name:    a.Name,
			Kind:    a.Kind,
			Price:   FromFloat(a.Price),
			Aliases: a.Aliases,
		})
	}
	for _, it := range f.Items {
		mods, err := expandGroups(it.Modifiers, f.Groups)
		if err != nil {
			return nil, fmt.Errorf("decode menu: %s: %w", it.Name, err)
		}
		milk := it.Milk
		if milk == "" {
			milk = MilkNone
		}
		spec.Items = append(spec.Items, Item{
			ID:           it.ID,
			Name:         it.Name,
			Category:     it.Category,
			Small:        FromFloat(it.Small),
			Large:        FromFloat(it.Large),
			Price:        FromFloat(it.Price),
			Temperatures: it.Temperatures,
			Milk:         milk,
			Modifiers:    mods,
			Aliases:      it.Aliases,
		})
	}

	c, err := New(spec)
	if err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	return c, nil
}

func expandGroups(mods []string, groups map[string][]string) ([]string, error) {
	var out []string
	for _, m := range mods {
		if len(m) > 1 && m[0] == '@' {
			g, ok := groups[m[1:]]
			if !ok {
				return nil, fmt.Errorf("unknown modifier group %q", m[1:])
			}
			out = append(out, g...)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Default returns the counter's built-in menu.
func Default() *Catalog {
	c, err := Decode(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("menu: embedded catalog is invalid: %v", err))
	}
	return c
}

// DefaultYAML returns a copy of the embedded catalog document.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultCatalog...)
}
