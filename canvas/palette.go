package canvas

import (
	"sort"

	"github.com/meikuraledutech/architex"
)

// Palette categories.
const (
	CategoryDatabase  = "database"
	CategoryFramework = "framework"
	CategoryHosting   = "hosting"
	CategoryService   = "service"
)

// Component is a palette entry that can be dropped onto the canvas.
type Component struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category"`
	Icon     string `json:"icon"`
	Color    string `json:"color"`
}

// NodeData returns the data a node created from c carries.
func (c Component) NodeData() architex.NodeData {
	return architex.NodeData{
		Label:       c.Label,
		ComponentID: c.ID,
		Category:    c.Category,
		Icon:        c.Icon,
		Color:       c.Color,
	}
}

// Palette is an ordered, read-only catalog of components.
type Palette struct {
	components []Component
	byID       map[string]Component
}

// NewPalette builds a palette. Later entries with a repeated id are dropped.
func NewPalette(components ...Component) *Palette {
	p := &Palette{byID: make(map[string]Component, len(components))}
	for _, c := range components {
		if c.ID == "" {
			continue
		}
		if _, dup := p.byID[c.ID]; dup {
			continue
		}
		p.byID[c.ID] = c
		p.components = append(p.components, c)
	}
	return p
}

var defaultComponents = []Component{
	{ID: "postgresql", Label: "PostgreSQL", Category: CategoryDatabase, Icon: "postgresql", Color: "#336791"},
	{ID: "mongodb", Label: "MongoDB", Category: CategoryDatabase, Icon: "mongodb", Color: "#47A248"},
	{ID: "mysql", Label: "MySQL", Category: CategoryDatabase, Icon: "mysql", Color: "#4479A1"},
	{ID: "redis", Label: "Redis", Category: CategoryDatabase, Icon: "redis", Color: "#DC382D"},
	{ID: "supabase", Label: "Supabase", Category: CategoryDatabase, Icon: "supabase", Color: "#3ECF8E"},
	{ID: "nextjs", Label: "Next.js", Category: CategoryFramework, Icon: "nextjs", Color: "#000000"},
	{ID: "react", Label: "React", Category: CategoryFramework, Icon: "react", Color: "#61DAFB"},
	{ID: "express", Label: "Express", Category: CategoryFramework, Icon: "express", Color: "#404D59"},
	{ID: "fastapi", Label: "FastAPI", Category: CategoryFramework, Icon: "fastapi", Color: "#009688"},
	{ID: "django", Label: "Django", Category: CategoryFramework, Icon: "django", Color: "#092E20"},
	{ID: "vercel", Label: "Vercel", Category: CategoryHosting, Icon: "vercel", Color: "#000000"},
	{ID: "netlify", Label: "Netlify", Category: CategoryHosting, Icon: "netlify", Color: "#00C7B7"},
	{ID: "aws", Label: "AWS", Category: CategoryHosting, Icon: "aws", Color: "#FF9900"},
	{ID: "docker", Label: "Docker", Category: CategoryHosting, Icon: "docker", Color: "#2496ED"},
	{ID: "stripe", Label: "Stripe", Category: CategoryService, Icon: "stripe", Color: "#635BFF"},
	{ID: "auth0", Label: "Auth0", Category: CategoryService, Icon: "auth0", Color: "#EB5424"},
}

// DefaultPalette returns the built-in component catalog.
func DefaultPalette() *Palette {
	return NewPalette(defaultComponents...)
}

// Lookup finds a component by id.
func (p *Palette) Lookup(id string) (Component, bool) {
	c, ok := p.byID[id]
	return c, ok
}

// Components returns the catalog in declaration order.
func (p *Palette) Components() []Component {
	return append([]Component(nil), p.components...)
}

// ByCategory groups the catalog by category.
func (p *Palette) ByCategory() map[string][]Component {
	out := make(map[string][]Component)
	for _, c := range p.components {
		out[c.Category] = append(out[c.Category], c)
	}
	return out
}

// Categories returns the category names present, sorted.
func (p *Palette) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, c := range p.components {
		if !seen[c.Category] {
			seen[c.Category] = true
			cats = append(cats, c.Category)
		}
	}
	sort.Strings(cats)
	return cats
}
