package pricebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_Wrap(t *testing.T) {
	r := newRing(3)
	assert.Empty(t, r.appendTo(nil))

	r.push(1)
	r.push(2)
	assert.Equal(t, []float64{1, 2}, r.appendTo(nil))

	r.push(3)
	r.push(4)
	r.push(5)
	assert.Equal(t, 3, r.len())
	assert.Equal(t, []float64{3, 4, 5}, r.appendTo(nil))

	r.push(6)
	r.push(7)
	assert.Equal(t, []float64{5, 6, 7}, r.appendTo(nil))
}

func TestRing_SizeOne(t *testing.T) {
	r := newRing(1)
	for i := 0; i < 5; i++ {
		r.push(float64(i))
	}
	assert.Equal(t, []float64{4}, r.appendTo(nil))
}
