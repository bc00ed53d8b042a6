package order

import (
	"fmt"
	"strings"

	"orderagent/menu"
)

// Reason classifies a correction the validator made to a line.
type Reason string

const (
	ReasonPastryStripped   Reason = "PastryModifiersStripped"
	ReasonCannotWarmPastry Reason = "CannotWarmPastry"
	ReasonIcedOnlyItem     Reason = "IcedOnlyItem"
	ReasonModifierCapped   Reason = "ModifierCapped"
	ReasonUnsupported      Reason = "UnsupportedModifier"
)

// precedence orders reasons for choosing the single guardrail message of a turn.
var precedence = map[Reason]int{
	ReasonPastryStripped:   0,
	ReasonCannotWarmPastry: 1,
	ReasonIcedOnlyItem:     2,
	ReasonModifierCapped:   3,
	ReasonUnsupported:      4,
}

// Correction records one change the validator made, and why.
type Correction struct {
	Line   int    `json:"line"`
	Item   string `json:"item"`
	Field  Field  `json:"field"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Reason Reason `json:"reason"`
}

var warmWords = map[string]bool{
	"warm": true, "warmed": true, "warmed up": true, "heated": true, "heated up": true, "toasted": true, "hot": true,
}

// Validate enforces the catalog's rules on one line and returns the corrected
// line with the corrections made. It never adds a line or changes the item.
// A temperature outside hot and iced yields ErrInconsistentLine.
func Validate(c *menu.Catalog, l Line) (Line, []Correction, error) {
	it, err := c.Lookup(l.Item)
	if err != nil {
		return l, nil, fmt.Errorf("%w: item %q: %v", ErrInconsistentLine, l.Item, err)
	}
	switch l.Temperature {
	case "", menu.TempHot, menu.TempIced:
	default:
		return l, nil, fmt.Errorf("%w: temperature %q", ErrInconsistentLine, l.Temperature)
	}

	out := l.Clone()
	out.Item = it.Name
	if out.Quantity < 1 {
		out.Quantity = 1
	}
	out.Modifiers = canonicalModifiers(c, out.Modifiers)

	if it.IsPastry() {
		return validatePastry(it, out)
	}
	return validateDrink(c, it, out)
}

func validatePastry(it menu.Item, l Line) (Line, []Correction, error) {
	var (
		out  []Correction
		warm bool
	)
	strip := func(f Field, from string) {
		out = append(out, Correction{Item: it.Name, Field: f, From: from, Reason: ReasonPastryStripped})
	}

	if l.Size != "" {
		strip(FieldSize, string(l.Size))
	}
	switch l.Temperature {
	case menu.TempHot:
		warm = true
	case menu.TempIced:
		strip(FieldTemperature, string(l.Temperature))
	}
	if l.Milk != "" {
		strip(FieldMilk, string(l.Milk))
	}
	for _, m := range l.Modifiers {
		if warmWords[m.Name] {
			warm = true
			continue
		}
		strip(FieldModifiers, m.Name)
	}
	if warm {
		out = append(out, Correction{Item: it.Name, Field: FieldTemperature, From: "warmed", Reason: ReasonCannotWarmPastry})
	}

	l.Size, l.Temperature, l.Milk, l.Modifiers = "", "", "", nil
	return l, out, nil
}

func validateDrink(c *menu.Catalog, it menu.Item, l Line) (Line, []Correction, error) {
	var out []Correction

	if l.Temperature != "" && !it.AllowsTemperature(l.Temperature) {
		legal := c.LegalTemperatures(it)
		if len(legal) == 1 {
			out = append(out, Correction{Item: it.Name, Field: FieldTemperature, From: string(l.Temperature), To: string(legal[0]), Reason: ReasonIcedOnlyItem})
			l.Temperature = legal[0]
		}
	}

	if l.Milk != "" && !c.AllowsMilk(it) {
		out = append(out, Correction{Item: it.Name, Field: FieldMilk, From: string(l.Milk), Reason: ReasonUnsupported})
		l.Milk = ""
	}

	var (
		kept        []menu.Modifier
		unsupported []Correction
	)
	for _, m := range l.Modifiers {
		a, known := c.Addon(m.Name)
		if !known || !c.AllowsModifier(it, m.Name) {
			unsupported = append(unsupported, Correction{Item: it.Name, Field: FieldModifiers, From: m.Name, Reason: ReasonUnsupported})
			continue
		}
		if a.Kind == menu.KindIce && l.Temperature == menu.TempHot {
			unsupported = append(unsupported, Correction{Item: it.Name, Field: FieldModifiers, From: m.Name, Reason: ReasonUnsupported})
			continue
		}
		kept = append(kept, m)
	}

	limits := c.Limits()
	kept, capped := capKind(c, it, kept, menu.KindShot, limits.MaxExtraShots)
	out = append(out, capped...)
	kept, capped = capKind(c, it, kept, menu.KindSyrup, limits.MaxSyrupPumps)
	out = append(out, capped...)
	out = append(out, unsupported...)

	l.Modifiers = kept
	return l, out, nil
}

// capKind clamps the total count of one add-on kind to limit, taking from the
// most recently listed modifier first.
func capKind(c *menu.Catalog, it menu.Item, mods []menu.Modifier, kind menu.AddonKind, limit int) ([]menu.Modifier, []Correction) {
	total := 0
	for _, m := range mods {
		if a, _ := c.Addon(m.Name); a.Kind == kind {
			total += m.Count
		}
	}
	if total <= limit {
		return mods, nil
	}

	var out []Correction
	excess := total - limit
	for i := len(mods) - 1; i >= 0 && excess > 0; i-- {
		if a, _ := c.Addon(mods[i].Name); a.Kind != kind {
			continue
		}
		take := mods[i].Count
		if take > excess {
			take = excess
		}
		from := mods[i].Count
		mods[i].Count -= take
		excess -= take
		out = append(out, Correction{
			Item:   it.Name,
			Field:  FieldModifiers,
			From:   fmt.Sprintf("%s x%d", mods[i].Name, from),
			To:     fmt.Sprintf("%s x%d", mods[i].Name, mods[i].Count),
			Reason: ReasonModifierCapped,
		})
	}

	kept := mods[:0]
	for _, m := range mods {
		if m.Count > 0 {
			kept = append(kept, m)
		}
	}
	return kept, out
}

// canonicalModifiers resolves aliases to add-on names and merges duplicates.
// Unknown names are kept normalized so they can be reported.
func canonicalModifiers(c *menu.Catalog, mods []menu.Modifier) []menu.Modifier {
	var out []menu.Modifier
	for _, m := range mods {
		name := menu.Normalize(m.Name)
		if a, ok := c.Addon(name); ok {
			name = a.Name
		}
		out = addModifier(out, menu.Modifier{Name: name, Count: m.Count})
	}
	return out
}

// ValidateCart validates every line and tags corrections with their line index.
func ValidateCart(c *menu.Catalog, cart Cart) (Cart, []Correction, error) {
	out := make(Cart, 0, len(cart))
	var all []Correction
	for i, l := range cart {
		nl, cs, err := Validate(c, l)
		if err != nil {
			return cart, nil, fmt.Errorf("line %d: %w", i, err)
		}
		for _, cr := range cs {
			cr.Line = i
			all = append(all, cr)
		}
		out = append(out, nl)
	}
	return out, all, nil
}

// Guardrail returns the single customer-facing message for a set of
// corrections, chosen by precedence. It returns "" when there is nothing to say.
func Guardrail(c *menu.Catalog, cs []Correction) string {
	if len(cs) == 0 {
		return ""
	}
	top := cs[0]
	for _, cr := range cs[1:] {
		if precedence[cr.Reason] < precedence[top.Reason] {
			top = cr
		}
	}

	switch top.Reason {
	case ReasonPastryStripped:
		return fmt.Sprintf("The %s comes as is, so I left off the drink options.", top.Item)
	case ReasonCannotWarmPastry:
		return "We cannot warm up pastries."
	case ReasonIcedOnlyItem:
		return fmt.Sprintf("The %s is only served %s, so I made it %s.", top.Item, top.To, top.To)
	case ReasonModifierCapped:
		limits := c.Limits()
		if strings.Contains(top.From, "syrup") {
			return fmt.Sprintf("We can do up to %d pumps of syrup in a drink.", limits.MaxSyrupPumps)
		}
		return fmt.Sprintf("We can do up to %d extra shots in a drink.", limits.MaxExtraShots)
	}
	return unsupportedMessage(c, top)
}

var (
	temperatureWords = map[string]bool{
		"lukewarm": true, "warm": true, "room temperature": true, "extra hot": true, "very hot": true,
		"cold": true, "frozen": true, "blended": true, "tepid": true, "kids temp": true,
	}
	sizeWords = map[string]bool{
		"medium": true, "tall": true, "grande": true, "venti": true, "regular": true, "extra large": true, "short": true,
	}
)

func unsupportedMessage(c *menu.Catalog, cr Correction) string {
	switch {
	case cr.Field == FieldMilk:
		return fmt.Sprintf("The %s doesn't come with milk.", cr.Item)
	case temperatureWords[cr.From]:
		return "We only serve drinks hot or iced."
	case sizeWords[cr.From]:
		return fmt.Sprintf("We don't have a %s size. We only have small or large.", cr.From)
	case strings.HasSuffix(cr.From, " milk"):
		return fmt.Sprintf("We don't have %s. We have %s.", cr.From, milkList(c))
	}
	if a, ok := c.Addon(cr.From); ok && a.Kind == menu.KindIce {
		return "Ice options only apply to iced drinks."
	}
	return fmt.Sprintf("Sorry, we can't add %s to the %s.", cr.From, cr.Item)
}

func milkList(c *menu.Catalog) string {
	var names []string
	for _, m := range c.Milks() {
		names = append(names, string(m))
	}
	return menu.JoinSpoken(names, "or") + " milk"
}
