package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeOptionsCanonical(t *testing.T) {
	a := map[string]string{"size": "L", "color": "red"}
	b := map[string]string{"color": "red", "size": "L"}

	assert.Equal(t, "color=red;size=L", EncodeOptions(a))
	assert.Equal(t, EncodeOptions(a), EncodeOptions(b))
	assert.Equal(t, "", EncodeOptions(nil))
}

func TestSameOptions(t *testing.T) {
	assert.True(t, SameOptions(nil, map[string]string{}))
	assert.True(t, SameOptions(map[string]string{"a": "1"}, map[string]string{"a": "1"}))
	assert.False(t, SameOptions(map[string]string{"a": "1"}, map[string]string{"a": "2"}))
	assert.False(t, SameOptions(map[string]string{"a": "1"}, map[string]string{"a": "1", "b": "2"}))
}

func TestWeightConversion(t *testing.T) {
	w := Weight{Value: 2, Unit: Kilogram}

	assert.InDelta(t, 2000, w.In(Gram), 0.001)
	assert.InDelta(t, 4.40925, w.In(Pound), 0.001)
	assert.InDelta(t, 2, w.In(Kilogram), 0.001)
}
