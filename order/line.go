package order

import (
	"fmt"
	"strings"

	"orderagent/menu"
)

// Field names a line attribute that can be missing or corrected.
type Field string

const (
	FieldItem        Field = "item"
	FieldQuantity    Field = "quantity"
	FieldSize        Field = "size"
	FieldTemperature Field = "temperature"
	FieldMilk        Field = "milk"
	FieldModifiers   Field = "modifiers"
)

// Line is one ordered product with its selections. Item holds the canonical
// catalog name.
type Line struct {
	Item        string           `json:"item"`
	Quantity    int              `json:"quantity"`
	Size        menu.Size        `json:"size,omitempty"`
	Temperature menu.Temperature `json:"temperature,omitempty"`
	Milk        menu.Milk        `json:"milk,omitempty"`
	Modifiers   []menu.Modifier  `json:"modifiers,omitempty"`
	UnitPrice   menu.Money       `json:"unit_price"`
	LinePrice   menu.Money       `json:"line_price"`
}

// Clone returns a deep copy of the line.
func (l Line) Clone() Line {
	l.Modifiers = append([]menu.Modifier(nil), l.Modifiers...)
	return l
}

// String renders the line as printed on a ticket, e.g. "1x Latte (Large) (Iced) (Oat milk)".
func (l Line) String() string {
	var b strings.Builder
	qty := l.Quantity
	if qty < 1 {
		qty = 1
	}
	fmt.Fprintf(&b, "%dx %s", qty, l.Item)
	if l.Size != "" {
		fmt.Fprintf(&b, " (%s)", menu.Label(string(l.Size)))
	}
	if l.Temperature != "" {
		fmt.Fprintf(&b, " (%s)", menu.Label(string(l.Temperature)))
	}
	if l.Milk != "" {
		fmt.Fprintf(&b, " (%s)", menu.MilkLabel(l.Milk))
	}
	for _, m := range l.Modifiers {
		if m.Count > 1 {
			fmt.Fprintf(&b, " (%s x%d)", menu.Label(m.Name), m.Count)
			continue
		}
		fmt.Fprintf(&b, " (%s)", menu.Label(m.Name))
	}
	return b.String()
}

func (l Line) has(f Field) bool {
	switch f {
	case FieldSize:
		return l.Size != ""
	case FieldTemperature:
		return l.Temperature != ""
	case FieldMilk:
		return l.Milk != ""
	case FieldModifiers:
		return len(l.Modifiers) > 0
	}
	return false
}

func (l Line) equal(o Line) bool {
	if l.Item != o.Item || l.Quantity != o.Quantity || l.Size != o.Size ||
		l.Temperature != o.Temperature || l.Milk != o.Milk || len(l.Modifiers) != len(o.Modifiers) {
		return false
	}
	for i := range l.Modifiers {
		if l.Modifiers[i] != o.Modifiers[i] {
			return false
		}
	}
	return true
}

// MissingFields lists the attributes the line still needs, in the order they
// are asked: size, temperature, milk.
func MissingFields(c *menu.Catalog, l Line) []Field {
	it, err := c.Lookup(l.Item)
	if err != nil {
		return nil
	}
	var out []Field
	if it.HasSizes() && l.Size == "" {
		out = append(out, FieldSize)
	}
	if it.NeedsTemperature() && l.Temperature == "" {
		out = append(out, FieldTemperature)
	}
	if c.RequiresMilk(it) && l.Milk == "" {
		out = append(out, FieldMilk)
	}
	return out
}

// IsComplete reports whether every required attribute of the line is set.
func IsComplete(c *menu.Catalog, l Line) bool {
	return len(MissingFields(c, l)) == 0
}

// Cart is an ordered list of lines. Insertion order is preserved and drives
// "the last drink" resolution.
type Cart []Line

func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	for i, l := range c {
		out[i] = l.Clone()
	}
	return out
}

// Lines renders every line as printed on a ticket.
func (c Cart) Lines() []string {
	out := make([]string, len(c))
	for i, l := range c {
		out[i] = l.String()
	}
	return out
}

// String renders the cart comma-joined, the form kept for storage and display.
func (c Cart) String() string {
	return strings.Join(c.Lines(), ", ")
}

// Equal compares selections and quantities, ignoring computed prices.
func (c Cart) Equal(o Cart) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if !c[i].equal(o[i]) {
			return false
		}
	}
	return true
}

// HasPastry reports whether any line is a pastry.
func (c Cart) HasPastry(cat *menu.Catalog) bool {
	for _, l := range c {
		if it, err := cat.Lookup(l.Item); err == nil && it.IsPastry() {
			return true
		}
	}
	return false
}

// HasDrink reports whether any line is a drink.
func (c Cart) HasDrink(cat *menu.Catalog) bool {
	for _, l := range c {
		if it, err := cat.Lookup(l.Item); err == nil && it.IsDrink() {
			return true
		}
	}
	return false
}

// Receipt is the immutable summary emitted when an order closes. Items keeps
// the structured lines for the kitchen.
type Receipt struct {
	Lines []string   `json:"lines"`
	Total menu.Money `json:"total"`
	Items Cart       `json:"items"`
}

func NewReceipt(c Cart, total menu.Money) *Receipt {
	return &Receipt{Lines: c.Lines(), Total: total, Items: c.Clone()}
}

// String renders the receipt as lines followed by "Total: $X.XX".
func (r Receipt) String() string {
	return strings.Join(r.Lines, "\n") + "\nTotal: " + r.Total.String()
}
