package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skylarkml/skylark/pkg/skyerrors"
)

func TestValidation_NotNull(t *testing.T) {
	v := DefaultValidation()

	t.Run("rejects null", func(t *testing.T) {
		err := v.Check("age", nil)
		assert.Error(t, err)
		assert.True(t, skyerrors.IsType(err, skyerrors.ErrorTypeValidation))
	})

	t.Run("accepts any non-null value", func(t *testing.T) {
		assert.NoError(t, v.Check("age", 42))
		assert.NoError(t, v.Check("name", "alice"))
	})

	t.Run("nullable rule accepts null", func(t *testing.T) {
		nullable := &Validation{NotNull: false}
		assert.NoError(t, nullable.Check("age", nil))
	})
}

func TestValidation_Bounds(t *testing.T) {
	min, max := 0.0, 100.0
	v := Bounded(&min, &max)

	t.Run("value inside bounds", func(t *testing.T) {
		assert.NoError(t, v.Check("score", 50.0))
		assert.NoError(t, v.Check("score", 0.0))
		assert.NoError(t, v.Check("score", 100.0))
	})

	t.Run("below minimum", func(t *testing.T) {
		err := v.Check("score", -1.0)
		assert.True(t, skyerrors.IsType(err, skyerrors.ErrorTypeValidation))
	})

	t.Run("above maximum", func(t *testing.T) {
		err := v.Check("score", 100.5)
		assert.True(t, skyerrors.IsType(err, skyerrors.ErrorTypeValidation))
	})

	t.Run("integers compare numerically", func(t *testing.T) {
		assert.NoError(t, v.Check("score", 50))
		assert.Error(t, v.Check("score", -3))
	})

	t.Run("non-numeric value with bounds", func(t *testing.T) {
		err := v.Check("score", "fast")
		assert.True(t, skyerrors.IsType(err, skyerrors.ErrorTypeValidation))
	})

	t.Run("error carries the feature name", func(t *testing.T) {
		err := v.Check("score", -1.0)
		var e *skyerrors.Error
		assert.ErrorAs(t, err, &e)
		assert.Equal(t, "score", e.Detail("feature"))
	})
}

func TestValidation_AllowedValues(t *testing.T) {
	v := OneOf("gold", "silver", "bronze")

	assert.NoError(t, v.Check("tier", "gold"))

	err := v.Check("tier", "platinum")
	assert.True(t, skyerrors.IsType(err, skyerrors.ErrorTypeValidation))

	t.Run("numeric membership ignores representation", func(t *testing.T) {
		nums := OneOf(1, 2, 3)
		assert.NoError(t, nums.Check("level", 2.0))
		assert.Error(t, nums.Check("level", 4))
	})
}
