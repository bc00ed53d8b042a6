package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"orderagent/menu"
)

const MenuGetName = "menu_get"

type MenuGet struct{ catalog *menu.Catalog }

func NewMenuGet(c *menu.Catalog) *MenuGet { return &MenuGet{catalog: c} }

func (t *MenuGet) Name() string  { return MenuGetName }
func (t *MenuGet) Title() string { return "Get Menu" }
func (t *MenuGet) Description() string {
	return "Returns the counter menu: items with prices, legal temperatures and milk rules, add-ons, milk choices, generic terms that need a follow-up question, and per-drink limits. Optionally filtered by category."
}

func (t *MenuGet) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"category": {
				Type:        "string",
				Description: "Only return items of this category.",
				Enum:        []any{string(menu.CategoryCoffee), string(menu.CategoryTea), string(menu.CategoryPastry)},
			},
		},
	}
}

func (t *MenuGet) OutputSchema() *jsonschema.Schema {
	minPrice := 0.0
	strings := &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"items": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":         {Type: "string"},
						"category":     {Type: "string"},
						"small":        {Type: "number", Minimum: &minPrice},
						"large":        {Type: "number", Minimum: &minPrice},
						"price":        {Type: "number", Minimum: &minPrice},
						"temperatures": strings,
						"milk":         {Type: "string"},
						"modifiers":    strings,
						"aliases":      strings,
					},
					Required: []string{"name", "category"},
				},
			},
			"addons": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":    {Type: "string"},
						"kind":    {Type: "string"},
						"price":   {Type: "number", Minimum: &minPrice},
						"aliases": strings,
					},
					Required: []string{"name", "kind", "price"},
				},
			},
			"milks": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":      {Type: "string"},
						"surcharge": {Type: "number", Minimum: &minPrice},
					},
					Required: []string{"name", "surcharge"},
				},
			},
			"families": {
				Type:                 "object",
				AdditionalProperties: strings,
			},
			"limits": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"max_extra_shots": {Type: "integer"},
					"max_syrup_pumps": {Type: "integer"},
				},
			},
			"sizes": {Type: "string"},
		},
		Required: []string{"items", "addons", "milks", "limits"},
	}
}

type menuItem struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Small        float64  `json:"small,omitempty"`
	Large        float64  `json:"large,omitempty"`
	Price        float64  `json:"price,omitempty"`
	Temperatures []string `json:"temperatures,omitempty"`
	Milk         string   `json:"milk,omitempty"`
	Modifiers    []string `json:"modifiers,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
}

type menuAddon struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Price   float64  `json:"price"`
	Aliases []string `json:"aliases,omitempty"`
}

type menuMilk struct {
	Name      string  `json:"name"`
	Surcharge float64 `json:"surcharge"`
}

type menuOutput struct {
	Items    []menuItem          `json:"items"`
	Addons   []menuAddon         `json:"addons"`
	Milks    []menuMilk          `json:"milks"`
	Families map[string][]string `json:"families,omitempty"`
	Limits   struct {
		MaxExtraShots int `json:"max_extra_shots"`
		MaxSyrupPumps int `json:"max_syrup_pumps"`
	} `json:"limits"`
	Sizes string `json:"sizes"`
}

func (t *MenuGet) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	items := t.catalog.Items()
	if v, ok := input["category"].(string); ok && v != "" {
		cat := menu.Category(menu.Normalize(v))
		switch cat {
		case menu.CategoryCoffee, menu.CategoryTea, menu.CategoryPastry:
			items = t.catalog.ItemsIn(cat)
		default:
			return nil, fmt.Errorf("unknown category %q", v)
		}
	}

	out := menuOutput{
		Items:  make([]menuItem, 0, len(items)),
		Addons: make([]menuAddon, 0),
		Milks:  make([]menuMilk, 0),
		Sizes:  "Small is 12 oz and large is 16 oz.",
	}
	for _, it := range items {
		mi := menuItem{Name: it.Name, Category: string(it.Category), Aliases: it.Aliases}
		if it.IsPastry() {
			mi.Price = it.Price.Dollars()
		} else {
			mi.Small, mi.Large = it.Small.Dollars(), it.Large.Dollars()
			for _, temp := range it.Temperatures {
				mi.Temperatures = append(mi.Temperatures, string(temp))
			}
			mi.Milk = string(it.Milk)
			mi.Modifiers = it.Modifiers
		}
		out.Items = append(out.Items, mi)
	}
	for _, a := range t.catalog.Addons() {
		out.Addons = append(out.Addons, menuAddon{Name: a.Name, Kind: string(a.Kind), Price: a.Price.Dollars(), Aliases: a.Aliases})
	}
	for _, m := range t.catalog.Milks() {
		out.Milks = append(out.Milks, menuMilk{Name: string(m), Surcharge: t.catalog.MilkSurcharge(m).Dollars()})
	}
	out.Families = t.catalog.Families()
	for _, opts := range out.Families {
		sort.Strings(opts)
	}
	out.Limits.MaxExtraShots = t.catalog.Limits().MaxExtraShots
	out.Limits.MaxSyrupPumps = t.catalog.Limits().MaxSyrupPumps

	return toMap(out)
}
