package order

import "orderagent/menu"

// PriceLine fills UnitPrice and LinePrice from the catalog. Pricing runs on
// validated lines, so every modifier that survives is chargeable.
func PriceLine(c *menu.Catalog, l Line) Line {
	it, err := c.Lookup(l.Item)
	if err != nil {
		l.UnitPrice, l.LinePrice = 0, 0
		return l
	}
	qty := l.Quantity
	if qty < 1 {
		qty = 1
	}
	l.UnitPrice = c.PriceOf(it, l.Size, l.Milk, l.Modifiers)
	l.LinePrice = l.UnitPrice * menu.Money(qty)
	return l
}

// Price prices every line and returns the cart with its total. The total is
// always the sum of line prices, whether or not the lines are complete.
func Price(c *menu.Catalog, cart Cart) (Cart, menu.Money) {
	out := make(Cart, len(cart))
	var total menu.Money
	for i, l := range cart {
		out[i] = PriceLine(c, l)
		total += out[i].LinePrice
	}
	return out, total
}
