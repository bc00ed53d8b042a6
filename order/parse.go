package order

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"orderagent/menu"
)

var (
	linePattern  = regexp.MustCompile(`^(?:(\d+)\s*x\s+)?([^()]+?)\s*((?:\([^()]*\)\s*)*)$`)
	groupPattern = regexp.MustCompile(`\(([^()]*)\)`)
	countSuffix  = regexp.MustCompile(`^(.*?)\s+x(\d+)$`)
)

// ParseLine reads a ticket line such as "2x Latte (Large) (Iced) (Oat milk)"
// back into a Line. Detail groups may also be comma separated, "(Large, Iced)".
// Details that are not a size, temperature or milk are kept as modifiers.
func ParseLine(c *menu.Catalog, s string) (Line, error) {
	m := linePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Line{}, fmt.Errorf("parse line %q: unrecognized format", s)
	}

	qty := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return Line{}, fmt.Errorf("parse line %q: bad quantity", s)
		}
		qty = n
	}

	it, err := c.Lookup(m[2])
	if err != nil {
		return Line{}, fmt.Errorf("parse line %q: %w", s, err)
	}

	l := Line{Item: it.Name, Quantity: qty}
	for _, g := range groupPattern.FindAllStringSubmatch(m[3], -1) {
		for _, part := range strings.Split(g[1], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if sz, ok := menu.ParseSize(part); ok {
				l.Size = sz
				continue
			}
			if t, ok := menu.ParseTemperature(part); ok {
				l.Temperature = t
				continue
			}
			if mk, ok := menu.ParseMilk(part); ok && strings.Contains(strings.ToLower(part), "milk") {
				l.Milk = mk
				continue
			}
			l.Modifiers = addModifier(l.Modifiers, parseDetail(c, part))
		}
	}
	return l, nil
}

func parseDetail(c *menu.Catalog, s string) menu.Modifier {
	count := 1
	if m := countSuffix.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			count = n
			s = m[1]
		}
	}
	name := menu.Normalize(s)
	if a, ok := c.Addon(name); ok {
		name = a.Name
	}
	return menu.Modifier{Name: name, Count: count}
}

// ParseCart reads a comma-joined ticket string back into a cart.
func ParseCart(c *menu.Catalog, s string) (Cart, error) {
	var cart Cart
	for _, part := range splitTopLevel(s) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		l, err := ParseLine(c, part)
		if err != nil {
			return nil, err
		}
		cart = append(cart, l)
	}
	return cart, nil
}

// MustParseCart is ParseCart for fixtures; it panics on error.
func MustParseCart(c *menu.Catalog, s string) Cart {
	cart, err := ParseCart(c, s)
	if err != nil {
		panic(err)
	}
	return cart
}

// splitTopLevel splits on commas that are not inside parentheses.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// addModifier merges m into mods, summing counts for the same name.
func addModifier(mods []menu.Modifier, m menu.Modifier) []menu.Modifier {
	if m.Name == "" {
		return mods
	}
	if m.Count < 1 {
		m.Count = 1
	}
	for i := range mods {
		if mods[i].Name == m.Name {
			mods[i].Count += m.Count
			return mods
		}
	}
	return append(mods, m)
}
