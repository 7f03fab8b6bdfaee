package feature

import (
	"time"

	"github.com/skylarkml/skylark/pkg/skyerrors"
)

// Group is a named, entity-scoped bundle of definitions computed and
// persisted together. Declaration order is compute order. Groups are built
// once at startup and are immutable afterwards; they carry no mutable state
// of their own, so ComputeAll is safe to call concurrently.
type Group struct {
	Name        string    `json:"name"`
	Entity      string    `json:"entity"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	order       []string
	definitions map[string]*Definition
}

// NewGroup creates an empty feature group.
func NewGroup(name, entity, description string) *Group {
	return &Group{
		Name:        name,
		Entity:      entity,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		definitions: make(map[string]*Definition),
	}
}

// reservedNames are the columns every persisted record carries alongside
// the feature values; a feature cannot shadow them.
var reservedNames = map[string]struct{}{
	"entity_id": {},
	"timestamp": {},
	"date":      {},
}

// AddFeature inserts a definition, keyed by its feature name. A definition
// whose entity differs from the group's, or whose name collides with a
// reserved record column, is rejected. Re-adding an existing name
// overwrites the definition but keeps its first-insertion position in the
// compute order.
func (g *Group) AddFeature(def *Definition) error {
	if _, reserved := reservedNames[def.Metadata.Name]; reserved {
		return skyerrors.Newf(skyerrors.ErrorTypeValidation,
			"feature name %q is a reserved record column", def.Metadata.Name).
			WithDetail("feature", def.Metadata.Name)
	}
	if def.Metadata.Entity != g.Entity {
		return skyerrors.Newf(skyerrors.ErrorTypeEntityMismatch,
			"feature %q entity %q does not match group %q entity %q",
			def.Metadata.Name, def.Metadata.Entity, g.Name, g.Entity).
			WithDetail("feature", def.Metadata.Name).
			WithDetail("feature_entity", def.Metadata.Entity).
			WithDetail("group_entity", g.Entity)
	}

	name := def.Metadata.Name
	if _, exists := g.definitions[name]; !exists {
		g.order = append(g.order, name)
	}
	g.definitions[name] = def
	return nil
}

// Feature returns the definition registered under name.
func (g *Group) Feature(name string) (*Definition, bool) {
	def, ok := g.definitions[name]
	return def, ok
}

// Features returns the definitions in declaration order.
func (g *Group) Features() []*Definition {
	defs := make([]*Definition, 0, len(g.order))
	for _, name := range g.order {
		defs = append(defs, g.definitions[name])
	}
	return defs
}

// Len returns the number of definitions in the group.
func (g *Group) Len() int {
	return len(g.order)
}

// ComputeAll computes every definition in declaration order. The first
// validation or transformation failure aborts the whole group and is
// returned unchanged; callers never see a partially-computed map and no
// value is ever defaulted to null on failure.
func (g *Group) ComputeAll(raw map[string]interface{}) (map[string]interface{}, error) {
	results := make(map[string]interface{}, len(g.order))
	for _, name := range g.order {
		value, err := g.definitions[name].Compute(raw)
		if err != nil {
			return nil, err
		}
		results[name] = value
	}
	return results, nil
}
