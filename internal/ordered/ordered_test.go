package ordered

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkedMapPreservesInsertionOrder(t *testing.T) {
	m := NewLinkedMap[string, int]()
	m.Put("c", 3)
	m.Put("a", 1)
	m.Put("b", 2)

	assert.Equal(t, []string{"c", "a", "b"}, m.Keys())
	assert.Equal(t, []int{3, 1, 2}, m.Values())
}

func TestLinkedMapRePutKeepsPosition(t *testing.T) {
	m := NewLinkedMap[string, int]()
	m.Put("a", 1)
	m.Put("b", 2)
	old, existed := m.Put("a", 99)

	assert.True(t, existed)
	assert.Equal(t, 1, old)
	assert.Equal(t, []string{"a", "b"}, m.Keys(), "re-putting a key must not move it")
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 99, v)
}

func TestLinkedMapDeterministicForEach(t *testing.T) {
	m := NewLinkedMap[int, int]()
	for i := 0; i < 20; i++ {
		m.Put(i, i*i)
	}
	var seen []int
	m.ForEach(func(k, v int) {
		seen = append(seen, k)
	})
	for i := 0; i < 20; i++ {
		assert.Equal(t, i, seen[i])
	}
}

func TestLinkedMapClone(t *testing.T) {
	m := NewLinkedMap[string, int]()
	m.Put("x", 1)
	clone := m.Clone()
	clone.Put("y", 2)

	assert.Equal(t, 1, m.Size())
	assert.Equal(t, 2, clone.Size())
}

func TestLinkedSetAddContains(t *testing.T) {
	s := NewLinkedSet[string]()
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"), "duplicate add reports false")
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("z"))
	assert.Equal(t, 1, s.Size())
}

func TestLinkedSetInsertionOrder(t *testing.T) {
	s := NewLinkedSet[int]()
	for _, x := range []int{5, 1, 4, 2} {
		s.Add(x)
	}
	assert.Equal(t, []int{5, 1, 4, 2}, s.Items())
}
