package tool

import (
	"sort"

	"github.com/Strob0t/Gatekeeper/internal/domain"
)

// Catalog is the validated, immutable set of tools the core enforces tiers
// on. Construction fails closed: any malformed definition prevents the
// catalog (and therefore the service) from loading.
type Catalog struct {
	tools map[string]Tool
	names []string
}

// NewCatalog validates the given tool definitions and builds a Catalog.
func NewCatalog(tools []Tool) (*Catalog, error) {
	c := &Catalog{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.tools[t.Name]; exists {
			return nil, domain.Validationf("tool %q: duplicate definition", t.Name)
		}
		c.tools[t.Name] = t
		c.names = append(c.names, t.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Get returns the tool with the given name.
func (c *Catalog) Get(name string) (Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// Names returns all tool names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// WriteTools returns the sorted names of all mutating tools (tiers T2 and
// T3). Every one of these must have an executor registered before the
// service accepts traffic.
func (c *Catalog) WriteTools() []string {
	var out []string
	for _, name := range c.names {
		if c.tools[name].Mutating() {
			out = append(out, name)
		}
	}
	return out
}

// Len returns the number of tools in the catalog.
func (c *Catalog) Len() int { return len(c.tools) }
