package menu

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a name does not match any catalog item.
var ErrNotFound = errors.New("menu item not found")

// AmbiguousError is returned when a name matches a family of items, such as
// "coffee" or "croissant", and the customer has to pick one.
type AmbiguousError struct {
	Term    string
	Options []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous menu term %q: one of %s", e.Term, strings.Join(e.Options, ", "))
}

// Catalog is the static menu. It is safe for concurrent use because it is never
// mutated after construction.
type Catalog struct {
	items     []Item
	byName    map[string]int
	ambiguous map[string][]string
	addons    map[string]Addon
	addonKey  map[string]string
	milks     map[Milk]Money
	limits    Limits
}

// Spec is the raw material for a Catalog.
type Spec struct {
	Items     []Item
	Addons    []Addon
	Milks     map[Milk]Money
	Ambiguous map[string][]string
	Limits    Limits
}

// New builds a catalog from spec after validating it.
func New(spec Spec) (*Catalog, error) {
	c := &Catalog{
		items:     make([]Item, 0, len(spec.Items)),
		byName:    make(map[string]int),
		ambiguous: make(map[string][]string),
		addons:    make(map[string]Addon),
		addonKey:  make(map[string]string),
		milks:     make(map[Milk]Money),
		limits:    spec.Limits,
	}
	if c.limits.MaxExtraShots <= 0 {
		c.limits.MaxExtraShots = DefaultLimits.MaxExtraShots
	}
	if c.limits.MaxSyrupPumps <= 0 {
		c.limits.MaxSyrupPumps = DefaultLimits.MaxSyrupPumps
	}

	for _, a := range spec.Addons {
		key := Normalize(a.Name)
		if key == "" {
			return nil, fmt.Errorf("add-on name is required")
		}
		a.Name = key
		c.addons[key] = a
		c.addonKey[key] = key
		for _, alias := range a.Aliases {
			c.addonKey[Normalize(alias)] = key
		}
	}

	for m, price := range spec.Milks {
		c.milks[m] = price
	}

	for _, it := range spec.Items {
		if err := c.validateItem(it); err != nil {
			return nil, err
		}
		idx := len(c.items)
		c.items = append(c.items, it)
		for _, name := range append([]string{it.Name, it.ID}, it.Aliases...) {
			key := Normalize(name)
			if key == "" {
				continue
			}
			if prev, ok := c.byName[key]; ok && prev != idx {
				return nil, fmt.Errorf("name %q maps to both %q and %q", name, c.items[prev].Name, it.Name)
			}
			c.byName[key] = idx
		}
	}

	for term, options := range spec.Ambiguous {
		key := Normalize(term)
		for _, opt := range options {
			if _, ok := c.byName[Normalize(opt)]; !ok {
				return nil, fmt.Errorf("ambiguous term %q lists unknown item %q", term, opt)
			}
		}
		c.ambiguous[key] = append([]string(nil), options...)
	}

	return c, nil
}

func (c *Catalog) validateItem(it Item) error {
	if it.Name == "" {
		return fmt.Errorf("menu item name is required")
	}
	switch it.Category {
	case CategoryCoffee, CategoryTea:
		if it.Small <= 0 || it.Large <= 0 {
			return fmt.Errorf("%s: small and large prices must be greater than 0", it.Name)
		}
		if len(it.Temperatures) == 0 {
			return fmt.Errorf("%s: at least one temperature is required", it.Name)
		}
		for _, t := range it.Temperatures {
			if t != TempHot && t != TempIced {
				return fmt.Errorf("%s: unknown temperature %q", it.Name, t)
			}
		}
		switch it.Milk {
		case MilkRequired, MilkOptional, MilkNone:
		default:
			return fmt.Errorf("%s: unknown milk policy %q", it.Name, it.Milk)
		}
	case CategoryPastry:
		if it.Price <= 0 {
			return fmt.Errorf("%s: price must be greater than 0", it.Name)
		}
		if len(it.Temperatures) > 0 || len(it.Modifiers) > 0 || (it.Milk != "" && it.Milk != MilkNone) {
			return fmt.Errorf("%s: pastries take no temperature, milk or modifiers", it.Name)
		}
	default:
		return fmt.Errorf("%s: unknown category %q", it.Name, it.Category)
	}
	for _, m := range it.Modifiers {
		if _, ok := c.addons[Normalize(m)]; !ok {
			return fmt.Errorf("%s: unknown modifier %q", it.Name, m)
		}
	}
	return nil
}

// Lookup resolves a spoken or typed item name, case-insensitively and through
// the synonym table. Family names are reported as *AmbiguousError.
func (c *Catalog) Lookup(name string) (Item, error) {
	key := stripArticles(Normalize(name))
	if key == "" {
		return Item{}, ErrNotFound
	}
	for _, candidate := range append([]string{key}, singulars(key)...) {
		if idx, ok := c.byName[candidate]; ok {
			return c.items[idx], nil
		}
		if opts, ok := c.ambiguous[candidate]; ok {
			return Item{}, &AmbiguousError{Term: candidate, Options: append([]string(nil), opts...)}
		}
	}
	return Item{}, fmt.Errorf("%q: %w", name, ErrNotFound)
}

// Items returns all items in menu order.
func (c *Catalog) Items() []Item {
	return append([]Item(nil), c.items...)
}

// ItemsIn returns the items of one category in menu order.
func (c *Catalog) ItemsIn(cat Category) []Item {
	var out []Item
	for _, it := range c.items {
		if it.Category == cat {
			out = append(out, it)
		}
	}
	return out
}

func (c *Catalog) Limits() Limits { return c.limits }

// WithLimits returns a copy of the catalog whose caps are overridden by the
// non-zero fields of l.
func (c *Catalog) WithLimits(l Limits) *Catalog {
	out := *c
	if l.MaxExtraShots > 0 {
		out.limits.MaxExtraShots = l.MaxExtraShots
	}
	if l.MaxSyrupPumps > 0 {
		out.limits.MaxSyrupPumps = l.MaxSyrupPumps
	}
	return &out
}

// Families returns the generic terms, such as "coffee", that name several items.
func (c *Catalog) Families() map[string][]string {
	out := make(map[string][]string, len(c.ambiguous))
	for term, opts := range c.ambiguous {
		out[term] = append([]string(nil), opts...)
	}
	return out
}

// Addons returns every add-on sorted by name.
func (c *Catalog) Addons() []Addon {
	out := make([]Addon, 0, len(c.addons))
	for _, a := range c.addons {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) LegalTemperatures(it Item) []Temperature {
	return append([]Temperature(nil), it.Temperatures...)
}

func (c *Catalog) RequiresMilk(it Item) bool { return it.Milk == MilkRequired }

// AllowsMilk reports whether any milk choice can be put on the item.
func (c *Catalog) AllowsMilk(it Item) bool {
	return it.IsDrink() && (it.Milk == MilkRequired || it.Milk == MilkOptional)
}

// Addon resolves a modifier name or alias to its catalog definition.
func (c *Catalog) Addon(name string) (Addon, bool) {
	key, ok := c.addonKey[Normalize(name)]
	if !ok {
		return Addon{}, false
	}
	return c.addons[key], true
}

// AllowsModifier reports whether the named add-on may go on the item.
func (c *Catalog) AllowsModifier(it Item, name string) bool {
	a, ok := c.Addon(name)
	if !ok {
		return false
	}
	for _, m := range it.Modifiers {
		if Normalize(m) == a.Name {
			return true
		}
	}
	return false
}

// BasePrice is the item price for the size, ignoring add-ons.
func (c *Catalog) BasePrice(it Item, size Size) Money {
	if it.IsPastry() {
		return it.Price
	}
	if size == SizeLarge {
		return it.Large
	}
	return it.Small
}

func (c *Catalog) MilkSurcharge(m Milk) Money {
	return c.milks[m]
}

// PriceOf computes the unit price of an item with its selections.
// Unknown modifiers contribute nothing.
func (c *Catalog) PriceOf(it Item, size Size, milk Milk, mods []Modifier) Money {
	total := c.BasePrice(it, size)
	if milk != "" {
		total += c.MilkSurcharge(milk)
	}
	for _, m := range mods {
		a, ok := c.Addon(m.Name)
		if !ok {
			continue
		}
		n := m.Count
		if n <= 0 {
			n = 1
		}
		total += a.Price * Money(n)
	}
	return total
}

// Milks lists the milk choices in a stable order.
func (c *Catalog) Milks() []Milk {
	out := make([]Milk, 0, len(c.milks))
	for m := range c.milks {
		out = append(out, m)
	}
	order := map[Milk]int{MilkWhole: 0, MilkSkim: 1, MilkOat: 2, MilkAlmond: 3}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := order[out[i]]
		oj, jok := order[out[j]]
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return out[i] < out[j]
	})
	return out
}

// Names returns the item names of a category joined for speech, e.g.
// "Plain Croissant, Chocolate Croissant, or Banana Bread".
func (c *Catalog) Names(cat Category, conj string) string {
	var names []string
	for _, it := range c.ItemsIn(cat) {
		names = append(names, it.Name)
	}
	return JoinSpoken(names, conj)
}

// Summary is a one-line-per-category listing used in prompts and menu answers.
func (c *Catalog) Summary() string {
	var b strings.Builder
	for _, cat := range []Category{CategoryCoffee, CategoryTea, CategoryPastry} {
		items := c.ItemsIn(cat)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:", strings.ToUpper(string(cat)))
		for i, it := range items {
			if i > 0 {
				b.WriteString(",")
			}
			if it.IsPastry() {
				fmt.Fprintf(&b, " %s (%s)", it.Name, it.Price)
				continue
			}
			fmt.Fprintf(&b, " %s (%s/%s", it.Name, it.Small, it.Large)
			if len(it.Temperatures) == 1 {
				fmt.Fprintf(&b, ", %s only", it.Temperatures[0])
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// JoinSpoken joins names as a spoken list: "a", "a or b", "a, b, or c".
func JoinSpoken(names []string, conj string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " " + conj + " " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", " + conj + " " + names[len(names)-1]
}

func stripArticles(s string) string {
	for _, prefix := range []string{"a ", "an ", "the ", "one ", "some "} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimPrefix(s, prefix)
		}
	}
	return s
}

// singulars returns plausible singular forms of a plural phrase, most likely first.
func singulars(s string) []string {
	var out []string
	if strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		out = append(out, strings.TrimSuffix(s, "s"))
	}
	if strings.HasSuffix(s, "es") {
		out = append(out, strings.TrimSuffix(s, "es"))
	}
	if strings.HasSuffix(s, "ies") {
		out = append(out, strings.TrimSuffix(s, "ies")+"y")
	}
	return out
}
