package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	t.Run("empty set is not an error", func(t *testing.T) {
		errs := Errors{}
		assert.True(t, errs.Empty())
		assert.NoError(t, errs.Err())
	})

	t.Run("collects messages per field", func(t *testing.T) {
		errs := Errors{}
		errs.Add("isin", "This field is required.")
		errs.Add("lei", "This field is required.")
		errs.Add("lei", "second")

		require.Error(t, errs.Err())
		assert.True(t, errs.Has("isin"))
		assert.False(t, errs.Has("size"))
		assert.Equal(t, []string{"This field is required.", "second"}, errs["lei"])
	})

	t.Run("survives wrapping", func(t *testing.T) {
		errs := Errors{}
		errs.Add("size", "A valid integer is required.")
		wrapped := fmt.Errorf("create bond: %w", errs.Err())

		var got Errors
		require.True(t, errors.As(wrapped, &got))
		assert.Equal(t, []string{"A valid integer is required."}, got["size"])
	})

	t.Run("error string is deterministic", func(t *testing.T) {
		errs := Errors{"b": {"two"}, "a": {"one"}}
		assert.Equal(t, "validation failed: a: one; b: two", errs.Error())
	})

	t.Run("merge appends", func(t *testing.T) {
		errs := Errors{"a": {"one"}}
		errs.Merge(Errors{"a": {"two"}, "b": {"three"}})
		assert.Equal(t, []string{"one", "two"}, errs["a"])
		assert.Equal(t, []string{"three"}, errs["b"])
	})
}
