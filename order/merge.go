package order

import (
	"errors"
	"strconv"
	"strings"

	"orderagent/menu"
)

// Merge applies a proposal's updates to prior and returns the new cart. A turn
// is atomic: if any update fails, prior is returned unchanged with the error.
// Quantities above one are only honored when the utterance states them.
func Merge(c *menu.Catalog, prior Cart, p Proposal, utterance string) (Cart, error) {
	cart := prior.Clone()
	for _, u := range p.Updates {
		next, err := apply(c, cart, u, utterance)
		if err != nil {
			return prior.Clone(), err
		}
		cart = next
	}
	return cart, nil
}

func apply(c *menu.Catalog, cart Cart, u Update, utterance string) (Cart, error) {
	a := resolveAttrs(c, u)

	switch u.action() {
	case ActionAdd:
		it, err := lookupItem(c, u.Item, u)
		if err != nil {
			return cart, err
		}
		l := Line{Item: it.Name, Quantity: ExplicitQuantity(utterance, u.Quantity, u.Item, it.Name)}
		a.applyTo(&l, false)
		return append(cart, l), nil

	case ActionSet, ActionChange:
		idx, err := target(c, cart, u, a)
		if err != nil {
			return cart, err
		}
		if q := ExplicitQuantity(utterance, u.Quantity, u.RefItem, cart[idx].Item); q > 1 {
			cart[idx].Quantity = q
		}
		a.applyTo(&cart[idx], u.action() == ActionChange)
		return cart, nil

	case ActionRemove:
		idx, err := targetLine(c, cart, u)
		if err != nil {
			return cart, err
		}
		return append(cart[:idx:idx], cart[idx+1:]...), nil

	case ActionReplace:
		idx, err := targetLine(c, cart, u)
		if err != nil {
			return cart, err
		}
		it, err := lookupItem(c, u.Item, u)
		if err != nil {
			return cart, err
		}
		cart[idx] = carryOver(c, cart[idx], it)
		if q := ExplicitQuantity(utterance, u.Quantity, u.Item, it.Name); q > 1 {
			cart[idx].Quantity = q
		}
		a.applyTo(&cart[idx], true)
		return cart, nil
	}
	return cart, &MergeError{Err: ErrUnattachable, Update: u}
}

// attrs are an update's attribute phrases resolved against the catalog.
// Words that are not a known size, temperature or milk become modifiers so
// the validator can refuse them.
type attrs struct {
	size menu.Size
	temp menu.Temperature
	milk menu.Milk
	mods []menu.Modifier
}

func resolveAttrs(c *menu.Catalog, u Update) attrs {
	var a attrs
	if u.Size != "" {
		if s, ok := menu.ParseSize(u.Size); ok {
			a.size = s
		} else {
			a.mods = addModifier(a.mods, menu.Modifier{Name: menu.Normalize(u.Size), Count: 1})
		}
	}
	if u.Temperature != "" {
		if t, ok := menu.ParseTemperature(u.Temperature); ok {
			a.temp = t
		} else {
			a.mods = addModifier(a.mods, menu.Modifier{Name: menu.Normalize(u.Temperature), Count: 1})
		}
	}
	if u.Milk != "" {
		if m, ok := menu.ParseMilk(u.Milk); ok {
			a.milk = m
		} else if name := menu.Normalize(u.Milk); !noMilk[name] {
			if !strings.HasSuffix(name, " milk") {
				name += " milk"
			}
			a.mods = addModifier(a.mods, menu.Modifier{Name: name, Count: 1})
		}
	}
	for _, s := range u.Modifiers {
		a.mods = addModifier(a.mods, ParseModifier(c, s))
	}
	return a
}

var noMilk = map[string]bool{"": true, "no": true, "none": true, "no milk": true, "black": true}

func (a attrs) empty() bool {
	return a.size == "" && a.temp == "" && a.milk == "" && len(a.mods) == 0
}

func (a attrs) applyTo(l *Line, overwrite bool) {
	if a.size != "" {
		l.Size = a.size
	}
	if a.temp != "" {
		l.Temperature = a.temp
	}
	if a.milk != "" {
		l.Milk = a.milk
	}
	for _, m := range a.mods {
		if overwrite {
			l.Modifiers = setModifier(l.Modifiers, m)
			continue
		}
		l.Modifiers = addModifier(l.Modifiers, m)
	}
}

func (a attrs) fields() []Field {
	var out []Field
	if a.size != "" {
		out = append(out, FieldSize)
	}
	if a.temp != "" {
		out = append(out, FieldTemperature)
	}
	if a.milk != "" {
		out = append(out, FieldMilk)
	}
	return out
}

func (a attrs) wantsWarming() bool {
	if a.temp == menu.TempHot {
		return true
	}
	for _, m := range a.mods {
		if warmWords[m.Name] {
			return true
		}
	}
	return false
}

// target picks the line an attribute update lands on. Explicit references
// pick the most recent line of that item. An implicit set picks the most
// recent line missing a supplied attribute, and is unattachable when every
// line that takes the attribute already has it. Otherwise, in order: the most
// recent line the attribute applies to, the most recent drink. A request to
// warm something may land on a pastry so it can be refused.
func target(c *menu.Catalog, cart Cart, u Update, a attrs) (int, error) {
	if isExplicit(u) {
		return explicitLine(c, cart, u)
	}
	if a.empty() {
		if u.Quantity > 1 && len(cart) > 0 {
			return len(cart) - 1, nil
		}
		return -1, &MergeError{Err: ErrUnattachable, Update: u}
	}

	fields := a.fields()
	items := make([]menu.Item, len(cart))
	for i, l := range cart {
		items[i], _ = c.Lookup(l.Item)
	}

	if u.action() == ActionSet && len(fields) > 0 {
		taken := false
		for i := len(cart) - 1; i >= 0; i-- {
			for _, f := range fields {
				if !applies(c, items[i], f) {
					continue
				}
				if !cart[i].has(f) {
					return i, nil
				}
				taken = true
			}
		}
		if taken {
			return -1, &MergeError{Err: ErrUnattachable, Update: u}
		}
	}
	for i := len(cart) - 1; i >= 0; i-- {
		for _, f := range fields {
			if applies(c, items[i], f) {
				return i, nil
			}
		}
	}
	for i := len(cart) - 1; i >= 0; i-- {
		if items[i].IsDrink() {
			return i, nil
		}
	}
	if a.wantsWarming() {
		for i := len(cart) - 1; i >= 0; i-- {
			if items[i].IsPastry() {
				return i, nil
			}
		}
	}
	return -1, &MergeError{Err: ErrUnattachable, Update: u}
}

// targetLine picks the line a remove or replace acts on: the named one, or the
// most recent line.
func targetLine(c *menu.Catalog, cart Cart, u Update) (int, error) {
	if isExplicit(u) {
		return explicitLine(c, cart, u)
	}
	if len(cart) == 0 {
		return -1, &MergeError{Err: ErrUnattachable, Update: u}
	}
	return len(cart) - 1, nil
}

func isExplicit(u Update) bool {
	return u.Ref == RefExplicit || (u.Ref != RefNew && u.RefItem != "")
}

func explicitLine(c *menu.Catalog, cart Cart, u Update) (int, error) {
	names := map[string]bool{}
	it, err := c.Lookup(u.RefItem)
	var amb *menu.AmbiguousError
	switch {
	case err == nil:
		names[it.Name] = true
	case errors.As(err, &amb):
		for _, o := range amb.Options {
			names[o] = true
		}
	default:
		return -1, &MergeError{Err: ErrUnattachable, Term: u.RefItem, Update: u}
	}
	for i := len(cart) - 1; i >= 0; i-- {
		if names[cart[i].Item] {
			return i, nil
		}
	}
	return -1, &MergeError{Err: ErrUnattachable, Term: u.RefItem, Update: u}
}

func applies(c *menu.Catalog, it menu.Item, f Field) bool {
	switch f {
	case FieldSize:
		return it.HasSizes()
	case FieldTemperature:
		return it.IsDrink()
	case FieldMilk:
		return c.AllowsMilk(it)
	}
	return false
}

func lookupItem(c *menu.Catalog, name string, u Update) (menu.Item, error) {
	it, err := c.Lookup(name)
	if err == nil {
		return it, nil
	}
	var amb *menu.AmbiguousError
	if errors.As(err, &amb) {
		return menu.Item{}, &MergeError{Err: ErrAmbiguousItem, Term: amb.Term, Options: amb.Options, Update: u}
	}
	return menu.Item{}, &MergeError{Err: ErrUnknownItem, Term: strings.TrimSpace(name), Update: u}
}

// carryOver moves the selections of an old line onto a new item, keeping only
// those the new item accepts.
func carryOver(c *menu.Catalog, old Line, it menu.Item) Line {
	l := Line{Item: it.Name, Quantity: old.Quantity}
	if it.HasSizes() {
		l.Size = old.Size
	}
	if it.AllowsTemperature(old.Temperature) {
		l.Temperature = old.Temperature
	}
	if c.AllowsMilk(it) {
		l.Milk = old.Milk
	}
	for _, m := range old.Modifiers {
		if c.AllowsModifier(it, m.Name) {
			l.Modifiers = append(l.Modifiers, m)
		}
	}
	return l
}

// setModifier replaces the count of an existing modifier, or appends it.
func setModifier(mods []menu.Modifier, m menu.Modifier) []menu.Modifier {
	for i := range mods {
		if mods[i].Name == m.Name {
			mods[i].Count = m.Count
			return mods
		}
	}
	return append(mods, m)
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"couple": 2, "dozen": 12,
}

// shotWords count shots or pumps, never lines.
var shotWords = map[string]int{"double": 2, "triple": 3}

func parseCount(w string) (int, bool) {
	if n, ok := numberWords[w]; ok {
		return n, true
	}
	n, err := strconv.Atoi(w)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// countFiller may sit between a count and the item it counts.
var countFiller = map[string]bool{
	"of": true, "more": true, "the": true, "those": true, "them": true, "please": true, "milk": true,
}

// ExplicitQuantity returns proposed if the utterance states that number for
// the item: a numeral or number word directly before one of the item's words,
// with only sizes, temperatures, milks or filler in between, or closing the
// utterance ("make it two"). It returns 1 otherwise, so "2 pumps caramel" or
// "three lattes" never turn a proposal of 2 into two lines.
func ExplicitQuantity(utterance string, proposed int, item ...string) int {
	if proposed < 2 {
		return 1
	}
	words := strings.Fields(menu.Normalize(utterance))
	for i, w := range words {
		if n, ok := parseCount(w); !ok || n != proposed {
			continue
		}
		if countsItem(words[i+1:], item) {
			return proposed
		}
	}
	return 1
}

func countsItem(rest []string, item []string) bool {
	for _, w := range rest {
		if namesItem(w, item) {
			return true
		}
		_, size := menu.ParseSize(w)
		_, temp := menu.ParseTemperature(w)
		_, milk := menu.ParseMilk(w)
		if !size && !temp && !milk && !countFiller[w] {
			return false
		}
	}
	return true
}

func namesItem(w string, item []string) bool {
	for _, term := range item {
		for _, iw := range strings.Fields(menu.Normalize(term)) {
			if stem(iw) == stem(w) {
				return true
			}
		}
	}
	return false
}

// stem folds simple plurals: lattes, cookies, teas.
func stem(w string) string {
	return strings.TrimSuffix(strings.TrimSuffix(w, "s"), "e")
}

var pumpWords = map[string]bool{"pump": true, "pumps": true, "of": true}

// ParseModifier reads a modifier phrase such as "2 pumps caramel",
// "extra shot x2" or "double shot" into a Modifier with a canonical name when
// the catalog knows it.
func ParseModifier(c *menu.Catalog, s string) menu.Modifier {
	count := 1
	if m := countSuffix.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			count, s = n, m[1]
		}
	}

	words := strings.Fields(menu.Normalize(s))
	if len(words) > 1 {
		if n, ok := parseCount(words[0]); ok {
			count, words = n, words[1:]
		} else if n, ok := shotWords[words[0]]; ok {
			count, words = n, words[1:]
		}
	}
	var kept []string
	for _, w := range words {
		if !pumpWords[w] {
			kept = append(kept, w)
		}
	}
	name := strings.Join(kept, " ")
	if a, ok := c.Addon(name); ok {
		return menu.Modifier{Name: a.Name, Count: count}
	}
	if a, ok := c.Addon(strings.Join(words, " ")); ok {
		return menu.Modifier{Name: a.Name, Count: count}
	}
	return menu.Modifier{Name: name, Count: count}
}
