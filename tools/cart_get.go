package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"orderagent/menu"
	"orderagent/order"
)

const CartGetName = "cart_get"

// CartGet reports the cart as it stood at the start of the turn, priced, with
// what each line still needs.
type CartGet struct {
	catalog *menu.Catalog
	cart    order.Cart
}

func NewCartGet(c *menu.Catalog, cart order.Cart) *CartGet {
	return &CartGet{catalog: c, cart: cart.Clone()}
}

func (t *CartGet) Name() string  { return CartGetName }
func (t *CartGet) Title() string { return "Get Cart" }
func (t *CartGet) Description() string {
	return "Returns the customer's current order lines in order, with their index, chosen options, missing fields and prices, plus the order total."
}

func (t *CartGet) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
}

func (t *CartGet) OutputSchema() *jsonschema.Schema {
	minIndex := 0.0
	minQty := 1.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"lines": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"index":       {Type: "integer", Minimum: &minIndex},
						"display":     {Type: "string"},
						"item":        {Type: "string"},
						"quantity":    {Type: "integer", Minimum: &minQty},
						"size":        {Type: "string"},
						"temperature": {Type: "string"},
						"milk":        {Type: "string"},
						"modifiers": {
							Type: "array",
							Items: &jsonschema.Schema{
								Type: "object",
								Properties: map[string]*jsonschema.Schema{
									"name":  {Type: "string"},
									"count": {Type: "integer"},
								},
							},
						},
						"missing":    {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
						"line_price": {Type: "number"},
					},
					Required: []string{"index", "display", "item", "quantity"},
				},
			},
			"total":    {Type: "number"},
			"complete": {Type: "boolean"},
		},
		Required: []string{"lines", "total", "complete"},
	}
}

type cartLine struct {
	Index       int             `json:"index"`
	Display     string          `json:"display"`
	Item        string          `json:"item"`
	Quantity    int             `json:"quantity"`
	Size        string          `json:"size,omitempty"`
	Temperature string          `json:"temperature,omitempty"`
	Milk        string          `json:"milk,omitempty"`
	Modifiers   []menu.Modifier `json:"modifiers,omitempty"`
	Missing     []string        `json:"missing,omitempty"`
	LinePrice   float64         `json:"line_price"`
}

func (t *CartGet) Run(ctx context.Context, _ map[string]any) (map[string]any, error) {
	priced, total := order.Price(t.catalog, t.cart)

	out := struct {
		Lines    []cartLine `json:"lines"`
		Total    float64    `json:"total"`
		Complete bool       `json:"complete"`
	}{
		Lines:    make([]cartLine, 0, len(priced)),
		Total:    total.Dollars(),
		Complete: order.Gatekeep(t.catalog, priced, false).Complete,
	}
	for i, l := range priced {
		cl := cartLine{
			Index:       i,
			Display:     l.String(),
			Item:        l.Item,
			Quantity:    l.Quantity,
			Size:        string(l.Size),
			Temperature: string(l.Temperature),
			Milk:        string(l.Milk),
			Modifiers:   l.Modifiers,
			LinePrice:   l.LinePrice.Dollars(),
		}
		for _, f := range order.MissingFields(t.catalog, l) {
			cl.Missing = append(cl.Missing, string(f))
		}
		out.Lines = append(out.Lines, cl)
	}
	return toMap(out)
}
