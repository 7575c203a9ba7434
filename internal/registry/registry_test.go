package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type plugin struct {
	name    string
	enabled bool
}

func (p plugin) Name() string { return p.name }

func TestListSortsByPriorityThenRegistration(t *testing.T) {
	r := New[plugin]()
	r.Register(plugin{name: "c"}, 30)
	r.Register(plugin{name: "a1"}, 10)
	r.Register(plugin{name: "b"}, 20)
	r.Register(plugin{name: "a2"}, 10)
	r.Register(plugin{name: "a3"}, 10)

	assert.Equal(t, []string{"a1", "a2", "a3", "b", "c"}, r.Names())
	assert.Equal(t, 5, r.Len())
}

func TestListIsDeterministic(t *testing.T) {
	r := New[plugin]()
	for _, n := range []string{"x", "y", "z", "w"} {
		r.Register(plugin{name: n}, 0)
	}
	first := r.Names()
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, r.Names())
	}
	assert.Equal(t, []string{"x", "y", "z", "w"}, first)
}

func TestFilter(t *testing.T) {
	r := New[plugin]()
	r.Register(plugin{name: "off", enabled: false}, 1)
	r.Register(plugin{name: "late", enabled: true}, 50)
	r.Register(plugin{name: "early", enabled: true}, 5)

	got := r.Filter(func(p plugin) bool { return p.enabled })
	assert.Equal(t, []plugin{{name: "early", enabled: true}, {name: "late", enabled: true}}, got)

	assert.Empty(t, r.Filter(func(plugin) bool { return false }))
}

func TestGet(t *testing.T) {
	r := New[plugin]()
	r.Register(plugin{name: "dup", enabled: true}, 10)
	r.Register(plugin{name: "dup", enabled: false}, 1)

	got, ok := r.Get(" dup ")
	assert.True(t, ok)
	assert.True(t, got.enabled, "Get returns the first registered item")

	prio, ok := r.Priority("dup")
	assert.True(t, ok)
	assert.Equal(t, 10, prio)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}
