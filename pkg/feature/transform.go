package feature

import (
	"sync"

	"github.com/skylarkml/skylark/pkg/skyerrors"
)

// TransformFunc computes a single derived value from a raw record.
// Implementations must be pure: same input, same output, no side effects.
type TransformFunc func(raw map[string]interface{}) (interface{}, error)

// transform table for named, serializable transformation references.
var (
	transformMu    sync.RWMutex
	transformTable = make(map[string]TransformFunc)
)

// RegisterTransform installs a named transformation function in the process
// table. Definitions reference functions by name so persisted metadata never
// embeds a closure. Registering an existing name overwrites it.
func RegisterTransform(name string, fn TransformFunc) {
	transformMu.Lock()
	defer transformMu.Unlock()
	transformTable[name] = fn
}

// LookupTransform resolves a registered transformation function by name.
func LookupTransform(name string) (TransformFunc, bool) {
	transformMu.RLock()
	defer transformMu.RUnlock()
	fn, ok := transformTable[name]
	return fn, ok
}

// Transformation is a named, deterministic derivation of a feature value
// from raw source fields. It is a tagged variant: either fn is set (a
// function resolved from the transform table or passed directly), or Expr
// holds a declarative query string for engines that evaluate it. The core
// engine executes only fn.
type Transformation struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	SourceFeatures []string `json:"source_features"`
	Expr           string   `json:"expr,omitempty"`

	fn TransformFunc
}

// NewTransformation builds a transformation around a function.
func NewTransformation(name, description string, sources []string, fn TransformFunc) *Transformation {
	return &Transformation{
		Name:           name,
		Description:    description,
		SourceFeatures: sources,
		fn:             fn,
	}
}

// TransformationFromRegistry builds a transformation that references a
// function previously installed with RegisterTransform.
func TransformationFromRegistry(name, description string, sources []string, registered string) (*Transformation, error) {
	fn, ok := LookupTransform(registered)
	if !ok {
		return nil, skyerrors.Newf(skyerrors.ErrorTypeNotFound, "transformation %q is not registered", registered)
	}
	return &Transformation{
		Name:           name,
		Description:    description,
		SourceFeatures: sources,
		fn:             fn,
	}, nil
}

// NewExprTransformation builds a declarative transformation carried as an
// expression string. It cannot be applied by the core engine.
func NewExprTransformation(name, description string, sources []string, expr string) *Transformation {
	return &Transformation{
		Name:           name,
		Description:    description,
		SourceFeatures: sources,
		Expr:           expr,
	}
}

// Apply runs the transformation against a raw record. Every declared source
// feature must be present; a missing source or a failing function is a
// transformation error, never a silent null.
func (t *Transformation) Apply(raw map[string]interface{}) (interface{}, error) {
	if t.fn == nil {
		return nil, skyerrors.Newf(skyerrors.ErrorTypeTransformation,
			"transformation %q has no executable function", t.Name).
			WithDetail("transformation", t.Name)
	}

	for _, src := range t.SourceFeatures {
		if _, ok := raw[src]; !ok {
			return nil, skyerrors.Newf(skyerrors.ErrorTypeTransformation,
				"transformation %q missing source feature %q", t.Name, src).
				WithDetail("transformation", t.Name).
				WithDetail("source", src)
		}
	}

	value, err := t.fn(raw)
	if err != nil {
		return nil, skyerrors.Wrap(err, skyerrors.ErrorTypeTransformation,
			"transformation "+t.Name+" failed").
			WithDetail("transformation", t.Name)
	}
	return value, nil
}
