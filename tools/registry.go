package tools

import (
	"encoding/json"
	"fmt"
	"sort"

	"orderagent/menu"
	"orderagent/order"
)

// Registry maps tool names to implementations
type Registry map[string]Tool

// NewRegistry creates the tools offered for one turn: the menu and a snapshot
// of the cart as it stood before the turn.
func NewRegistry(c *menu.Catalog, cart order.Cart) *Registry {
	registry := Registry{
		MenuGetName: NewMenuGet(c),
		CartGetName: NewCartGet(c, cart),
	}
	return &registry
}

// GetTools returns all tools in the registry sorted by name
func (r *Registry) GetTools() []Tool {
	tools := make([]Tool, 0, len(*r))
	for _, tool := range *r {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetTool retrieves a tool by name from the registry
func (r Registry) GetTool(name string) (Tool, error) {
	tool, exists := r[name]
	if !exists {
		return nil, fmt.Errorf("tool %q not found in registry", name)
	}
	return tool, nil
}

// toMap marshals v and reads it back as a generic map to keep outputs uniform.
func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
