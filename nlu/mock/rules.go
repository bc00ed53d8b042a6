package mock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"orderagent/menu"
	"orderagent/order"
)

var (
	placeOrder   = regexp.MustCompile(`\b(place|latte)\s+(a|an)?\s*order\b`)
	greeting     = regexp.MustCompile(`^(hi|hello|hey|howdy|good morning|good afternoon|good evening)( there)?$`)
	unknownOrder = regexp.MustCompile(`^(?:can i (?:get|have)|could i (?:get|have)|may i have|id like|i would like|ill have|ill take|i want|give me|get me)\s+(?:a |an |some |the |one )?(.+?)(?: please)?$`)
)

const replyPlaceOrder = "What can I get for you? We have coffee, tea, and pastries."

var resetPhrases = []string{
	"start over", "restart", "clear my order", "clear the order", "clear order", "clear everything",
	"cancel my order", "cancel the order", "cancel everything", "forget everything",
}

var closingPhrases = map[string]bool{
	"thats it": true, "thats all": true, "that is it": true, "that is all": true,
	"thats everything": true, "done": true, "im done": true, "im good": true, "all good": true,
	"nothing else": true, "that will be all": true, "thatll be all": true, "thats all for now": true,
	"send it": true, "place the order": true, "checkout": true, "check out": true,
}

var affirmPhrases = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "sure": true, "ok": true, "okay": true,
	"yes please": true, "sounds good": true, "why not": true, "sure why not": true,
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "single": 1, "two": 2, "double": 2, "couple": 2, "pair": 2,
	"three": 3, "triple": 3, "four": 4, "five": 5, "six": 6,
}

var sizeWords = map[string]bool{
	"small": true, "large": true, "medium": true, "tall": true, "grande": true, "venti": true,
	"big": true, "regular": true, "extra large": true,
}

var tempPhrases = [][]string{
	{"extra", "hot"}, {"room", "temperature"}, {"on", "ice"},
	{"lukewarm"}, {"tepid"}, {"hot"}, {"iced"}, {"cold"}, {"warm"},
}

var warmPhrases = [][]string{
	{"warm", "it", "up"}, {"warmed", "up"}, {"warm", "up"}, {"heated", "up"}, {"heat", "it", "up"},
	{"heated"}, {"toasted"}, {"warmed"},
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokItem
	tokAddon
	tokSize
	tokTemp
	tokWarm
	tokMilk
	tokSep
)

type token struct {
	kind  tokenKind
	value string
	item  phrase
	count int
	// definite is set on items preceded by "the".
	definite bool
}

// interpret reads one utterance against the menu vocabulary and the names of
// the items already in the cart.
func (l *lexicon) interpret(utterance string, cart []string) order.Proposal {
	norm := normalize(utterance)
	words := strings.Fields(norm)
	// "no, that's it" reads as "no and thats it" after normalizing
	bare := strings.Join(drop(words, "and"), " ")

	switch {
	case norm == "":
		return order.Proposal{Updates: []order.Update{}, Intent: order.IntentOther}
	case containsAny(norm, resetPhrases):
		return order.Proposal{Updates: []order.Update{}, Reset: true, Intent: order.IntentOrder}
	case placeOrder.MatchString(norm):
		return order.Proposal{Updates: []order.Update{}, Intent: order.IntentOrder, Reply: replyPlaceOrder}
	case isClosing(bare):
		return order.Proposal{Updates: []order.Update{}, Closing: true, Intent: order.IntentOrder}
	case greeting.MatchString(bare):
		return order.Proposal{Updates: []order.Update{}, Intent: order.IntentGreeting}
	case affirmPhrases[bare]:
		return order.Proposal{Updates: []order.Update{}, Intent: order.IntentAffirm}
	case isSizeQuery(words):
		return order.Proposal{Updates: []order.Update{}, Intent: order.IntentSizeQuery}
	case isMenuQuery(norm, words):
		return order.Proposal{Updates: []order.Update{}, Intent: order.IntentMenuQuery, Reply: l.menuReply(words)}
	}

	toks := l.tokenize(words)
	updates := l.updates(toks, words, cart)
	if len(updates) == 0 {
		if m := unknownOrder.FindStringSubmatch(norm); m != nil && !vague[strings.Fields(m[1])[0]] {
			updates = []order.Update{{Ref: order.RefNew, Action: order.ActionAdd, Item: m[1]}}
		}
	}
	if len(updates) == 0 {
		return order.Proposal{Updates: []order.Update{}, Intent: order.IntentOther}
	}
	return order.Proposal{Updates: updates, Intent: order.IntentOrder}
}

var vague = map[string]bool{"drink": true, "something": true, "anything": true, "order": true, "help": true, "to": true, "it": true}

func (l *lexicon) tokenize(words []string) []token {
	var toks []token
	for i := 0; i < len(words); {
		w := words[i]

		if p, n := match(l.addons, words, i); n > 0 {
			toks = append(toks, token{kind: tokAddon, value: p.name, count: countBefore(words, i, "of", "pump", "pumps", "extra")})
			i += n
			continue
		}
		if p, n := match(l.items, words, i); n > 0 {
			toks = append(toks, token{
				kind:     tokItem,
				item:     p,
				count:    countBefore(words, i, "of"),
				definite: i > 0 && (words[i-1] == "the" || words[i-1] == "that"),
			})
			i += n
			continue
		}
		if milk, n := l.milkAt(words, i); n > 0 {
			toks = append(toks, token{kind: tokMilk, value: milk})
			i += n
			continue
		}
		if n := phraseAt(warmPhrases, words, i); n > 0 {
			toks = append(toks, token{kind: tokWarm, value: "warmed up"})
			i += n
			continue
		}
		if n := phraseAt(tempPhrases, words, i); n > 0 {
			v := strings.Join(words[i:i+n], " ")
			if v == "cold" {
				v = "iced"
			}
			toks = append(toks, token{kind: tokTemp, value: v})
			i += n
			continue
		}
		if i+1 < len(words) && w == "extra" && words[i+1] == "large" {
			toks = append(toks, token{kind: tokSize, value: "extra large"})
			i += 2
			continue
		}
		if i+1 < len(words) && (w == "12" || w == "16") && strings.HasPrefix(words[i+1], "o") {
			toks = append(toks, token{kind: tokSize, value: w + " oz"})
			i += 2
			continue
		}
		if sizeWords[w] && !(w == "regular" && i+1 < len(words) && words[i+1] == "milk") {
			toks = append(toks, token{kind: tokSize, value: w})
			i++
			continue
		}
		if w == "and" || w == "plus" || w == "also" || w == "then" {
			toks = append(toks, token{kind: tokSep})
			i++
			continue
		}
		toks = append(toks, token{kind: tokWord, value: w})
		i++
	}
	return toks
}

// milkAt recognizes "<kind> milk", "oatmilk" and a bare milk name from the menu.
func (l *lexicon) milkAt(words []string, i int) (string, int) {
	w := words[i]
	if strings.HasSuffix(w, "milk") && w != "milk" {
		return strings.TrimSuffix(w, "milk") + " milk", 1
	}
	if i+1 < len(words) && words[i+1] == "milk" {
		if l.milks[w] || offMenuMilks[w] || w == "regular" || w == "nonfat" {
			return w + " milk", 2
		}
	}
	if i+2 < len(words) && words[i+2] == "milk" && offMenuMilks[w+" "+words[i+1]] {
		return w + " " + words[i+1] + " milk", 3
	}
	if l.milks[w] {
		return w + " milk", 1
	}
	return "", 0
}

// group is one item mention with the attributes that belong to it. A group
// without an item holds attributes for something already in the cart.
type group struct {
	item  *token
	attrs order.Update
}

func (g *group) empty() bool {
	a := g.attrs
	return a.Size == "" && a.Temperature == "" && a.Milk == "" && len(a.Modifiers) == 0
}

func (g *group) take(t token) {
	switch t.kind {
	case tokSize:
		g.attrs.Size = t.value
	case tokTemp:
		if t.value == "warm" && g.item != nil && g.item.item.pastry {
			g.attrs.Modifiers = append(g.attrs.Modifiers, "warmed up")
			return
		}
		g.attrs.Temperature = t.value
	case tokMilk:
		g.attrs.Milk = t.value
	case tokWarm:
		g.attrs.Modifiers = append(g.attrs.Modifiers, t.value)
	case tokAddon:
		mod := t.value
		if t.count > 1 {
			mod = strconv.Itoa(t.count) + " " + mod
		}
		g.attrs.Modifiers = append(g.attrs.Modifiers, mod)
	}
}

// groups assigns attributes to item mentions. Attributes before the first
// item belong to it unless a conjunction separates them, as in "small and hot".
func groups(toks []token) (implicit *group, items []*group) {
	implicit = &group{}
	var (
		pending []token
		current *group
	)
	for i := range toks {
		t := toks[i]
		switch t.kind {
		case tokItem:
			current = &group{item: &toks[i]}
			items = append(items, current)
			for _, p := range pending {
				current.take(p)
			}
			pending = nil
		case tokSep:
			if current == nil {
				for _, p := range pending {
					implicit.take(p)
				}
				pending = nil
			}
		case tokWord:
		default:
			if current != nil {
				current.take(t)
				continue
			}
			pending = append(pending, t)
		}
	}
	for _, p := range pending {
		implicit.take(p)
	}
	return implicit, items
}

func (l *lexicon) updates(toks []token, words []string, cart []string) []order.Update {
	var (
		removing = hasWord(words, "remove", "cancel", "drop") || hasPhrase(words, "take off", "dont want", "no more")
		changing = hasWord(words, "actually", "instead", "change", "switch", "swap") || hasPhrase(words, "make that", "make it")
		replace  = hasWord(words, "instead") || hasPhrase(words, "make that a", "make that an", "make it a", "make it an",
			"change it to", "change that to", "switch to", "switch it to", "swap it for")
		replaced bool
		out      []order.Update
	)

	implicit, items := groups(toks)

	if len(items) == 0 {
		switch {
		case removing && implicit.empty():
			return []order.Update{{Ref: order.RefImplicit, Action: order.ActionRemove}}
		case implicit.empty():
			return nil
		}
	}

	if !implicit.empty() {
		u := implicit.attrs
		u.Ref, u.Action = order.RefImplicit, order.ActionSet
		if changing {
			u.Action = order.ActionChange
		}
		out = append(out, u)
	}

	for _, g := range items {
		it := g.item.item
		inCart := contains(cart, it.name) || containsAny(strings.Join(cart, "|"), it.options)
		u := g.attrs

		switch {
		case removing && inCart:
			u = order.Update{Ref: order.RefExplicit, RefItem: it.name, Action: order.ActionRemove}
		case changing && inCart && !g.empty() && !replace:
			u.Ref, u.RefItem, u.Action = order.RefExplicit, it.name, order.ActionChange
		case replace && !replaced && !inCart && len(cart) > 0:
			u.Ref, u.Action, u.Item = order.RefImplicit, order.ActionReplace, it.name
			replaced = true
		case inCart && g.item.definite && !g.empty():
			u.Ref, u.RefItem, u.Action = order.RefExplicit, it.name, order.ActionSet
		default:
			u.Ref, u.Action, u.Item = order.RefNew, order.ActionAdd, it.name
			if g.item.count > 1 {
				u.Quantity = g.item.count
			}
		}
		out = append(out, u)
	}
	return out
}

// menuReply drafts an answer to a menu question about one category. A general
// question gets no draft and the engine lists the whole menu.
func (l *lexicon) menuReply(words []string) string {
	join := func(cat string) string { return menu.JoinSpoken(l.categories[cat], "and") }
	switch {
	case hasWord(words, "milk", "milks"):
		var names []string
		for _, m := range []string{"whole", "skim", "oat", "almond"} {
			if l.milks[m] {
				names = append(names, m)
			}
		}
		return fmt.Sprintf("We have %s milk.", menu.JoinSpoken(names, "or"))
	case hasWord(words, "coffee", "coffees"):
		return fmt.Sprintf("We have %s. Which would you like?", join("coffee"))
	case hasWord(words, "tea", "teas"):
		return fmt.Sprintf("We have %s. Which would you like?", join("tea"))
	case hasWord(words, "pastry", "pastries", "food", "eat", "snacks"):
		return fmt.Sprintf("We have %s. Which would you like?", join("pastry"))
	}
	return ""
}

func isClosing(s string) bool {
	for _, suffix := range []string{" thank you", " thanks", " please"} {
		s = strings.TrimSuffix(s, suffix)
	}
	switch s {
	case "no", "nope", "nah", "no thanks", "no thank you":
		return true
	}
	for _, prefix := range []string{"no ", "nope ", "nah ", "ok ", "okay "} {
		s = strings.TrimPrefix(s, prefix)
	}
	return closingPhrases[s]
}

func isSizeQuery(words []string) bool {
	return hasWord(words, "sizes") || hasPhrase(words, "what size is", "what size are", "how big", "how large", "how many ounces", "what sizes")
}

func isMenuQuery(norm string, words []string) bool {
	if hasWord(words, "menu", "options") {
		return true
	}
	if hasWord(words, "what", "which") && hasWord(words, "have", "kind", "kinds", "sell", "serve", "got", "types") {
		return true
	}
	return strings.HasPrefix(norm, "do you have") && !strings.Contains(norm, "do you have a ")
}

// countBefore reads a number said just before words[i], skipping filler.
func countBefore(words []string, i int, skip ...string) int {
	for j := i - 1; j >= 0; j-- {
		w := words[j]
		if n, ok := numberWords[w]; ok {
			return n
		}
		if n, err := strconv.Atoi(w); err == nil && n > 0 {
			return n
		}
		if !contains(skip, w) {
			return 1
		}
	}
	return 1
}

func phraseAt(phrases [][]string, words []string, i int) int {
	for _, p := range phrases {
		if i+len(p) > len(words) {
			continue
		}
		ok := true
		for k, w := range p {
			if words[i+k] != w {
				ok = false
				break
			}
		}
		if ok {
			return len(p)
		}
	}
	return 0
}

// normalize lowercases s, drops apostrophes and turns punctuation into spaces.
// Commas and ampersands become "and" so lists split like spoken ones.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(",", " and ", "&", " and ", "%", "").Replace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
		default:
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	// trailing "and" left by a final comma
	for len(words) > 0 && words[len(words)-1] == "and" {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func hasWord(words []string, targets ...string) bool {
	for _, w := range words {
		if contains(targets, w) {
			return true
		}
	}
	return false
}

func hasPhrase(words []string, phrases ...string) bool {
	s := " " + strings.Join(words, " ") + " "
	for _, p := range phrases {
		if strings.Contains(s, " "+p+" ") {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func drop(words []string, w string) []string {
	out := make([]string, 0, len(words))
	for _, v := range words {
		if v != w {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
