package mock

import (
	"sort"
	"strings"
)

// phrase is a multi-word term the rules look for.
type phrase struct {
	words   []string
	name    string
	pastry  bool
	options []string
}

// lexicon is the vocabulary read from a menu_get result.
type lexicon struct {
	items      []phrase
	addons     []phrase
	milks      map[string]bool
	categories map[string][]string
}

// Modifiers the menu does not carry but customers ask for. They are passed
// through as heard so they get refused.
var offMenuModifiers = []string{
	"whipped cream", "whip", "vanilla syrup", "vanilla", "cinnamon", "sprinkles",
	"honey", "sugar free", "decaf", "half caf", "foam", "extra foam", "no foam",
}

// Milks nobody stocks but the customer may still name.
var offMenuMilks = map[string]bool{"soy": true, "coconut": true, "rice": true, "cashew": true, "lactose free": true, "2": true}

func newLexicon(menuData map[string]any) *lexicon {
	l := &lexicon{
		milks:      make(map[string]bool),
		categories: make(map[string][]string),
	}

	pastries := make(map[string]bool)
	for _, raw := range list(menuData["items"]) {
		it, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := it["name"].(string)
		cat, _ := it["category"].(string)
		if name == "" {
			continue
		}
		l.categories[cat] = append(l.categories[cat], name)
		pastry := cat == "pastry"
		if pastry {
			pastries[name] = true
		}
		for _, term := range append([]string{name}, strs(it["aliases"])...) {
			l.items = append(l.items, variants(term, name, pastry, nil)...)
		}
	}

	if fams, ok := menuData["families"].(map[string]any); ok {
		for term, raw := range fams {
			opts := strs(raw)
			pastry := len(opts) > 0
			for _, o := range opts {
				pastry = pastry && pastries[o]
			}
			l.items = append(l.items, variants(term, term, pastry, opts)...)
		}
	}

	for _, raw := range list(menuData["addons"]) {
		a, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := a["name"].(string)
		for _, term := range append([]string{name}, strs(a["aliases"])...) {
			l.addons = append(l.addons, phrase{words: strings.Fields(strings.ToLower(term)), name: strings.ToLower(term)})
		}
	}
	for _, term := range offMenuModifiers {
		l.addons = append(l.addons, phrase{words: strings.Fields(term), name: term})
	}

	for _, raw := range list(menuData["milks"]) {
		if m, ok := raw.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				l.milks[name] = true
			}
		}
	}

	byLength(l.items)
	byLength(l.addons)
	return l
}

// variants returns a term and its plural spellings.
func variants(term, name string, pastry bool, options []string) []phrase {
	base := strings.ToLower(strings.TrimSpace(term))
	if base == "" {
		return nil
	}
	forms := []string{base}
	switch {
	case strings.HasSuffix(base, "y"):
		forms = append(forms, strings.TrimSuffix(base, "y")+"ies")
	case strings.HasSuffix(base, "s"):
	default:
		forms = append(forms, base+"s", base+"es")
	}
	out := make([]phrase, 0, len(forms))
	for _, f := range forms {
		out = append(out, phrase{words: strings.Fields(f), name: name, pastry: pastry, options: options})
	}
	return out
}

// byLength puts longer phrases first so "matcha latte" wins over "latte".
func byLength(ps []phrase) {
	sort.SliceStable(ps, func(i, j int) bool { return len(ps[i].words) > len(ps[j].words) })
}

// match returns the first phrase that starts at words[i].
func match(ps []phrase, words []string, i int) (phrase, int) {
	for _, p := range ps {
		n := len(p.words)
		if i+n > len(words) {
			continue
		}
		ok := true
		for k, w := range p.words {
			if words[i+k] != w {
				ok = false
				break
			}
		}
		if ok {
			return p, n
		}
	}
	return phrase{}, 0
}

func list(v any) []any {
	out, _ := v.([]any)
	return out
}

func strs(v any) []string {
	var out []string
	for _, raw := range list(v) {
		if s, ok := raw.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
