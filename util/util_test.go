package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetKeysSorted(t *testing.T) {
	m := map[string]int{"E4": 1, "0.4.7": 2, "C4": 3}
	assert.Equal(t, []string{"0.4.7", "C4", "E4"}, GetKeys(m))
}

func TestMinSum(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(3, Min(3, 7))
	assert.Equal(uint8(2), Min(uint8(9), uint8(2)))
	assert.Equal(uint64(10), Sum([]int{1, 2, 3, 4}))
	assert.Equal([]int{1, 3}, FilterZeros([]int{0, 1, 0, 3}))
}
