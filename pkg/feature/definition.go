package feature

// Definition composes a feature's metadata with an optional transformation
// and a validation rule. With no transformation the value is read verbatim
// from the raw record under the feature's own name; with no validation the
// default not-null rule applies.
type Definition struct {
	Metadata       *Metadata       `json:"metadata"`
	Transformation *Transformation `json:"transformation,omitempty"`
	Validation     *Validation     `json:"validation"`
}

// NewDefinition builds a fully-formed definition. Callers always pass the
// three parts explicitly; transformation and validation may be nil.
func NewDefinition(md *Metadata, tr *Transformation, val *Validation) *Definition {
	if val == nil {
		val = DefaultValidation()
	}
	return &Definition{
		Metadata:       md,
		Transformation: tr,
		Validation:     val,
	}
}

// Compute derives the feature's value from a raw record and validates it.
// A missing raw key without a transformation yields a null value, which the
// validation rule then accepts or rejects. Compute is pure: no state on the
// definition is mutated.
func (d *Definition) Compute(raw map[string]interface{}) (interface{}, error) {
	var value interface{}

	if d.Transformation != nil {
		v, err := d.Transformation.Apply(raw)
		if err != nil {
			return nil, err
		}
		value = v
	} else {
		value = raw[d.Metadata.Name]
	}

	if err := d.Validation.Check(d.Metadata.Name, value); err != nil {
		return nil, err
	}

	return value, nil
}
