package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, "p1"), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, "p1"), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=x%")

	assert.True(t, m.Enabled("always", "p1"))
	assert.False(t, m.Enabled("never", "p1"))
	assert.False(t, m.Enabled("broken", "p1"))

	first := m.Enabled("canary", "p-42")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", "p-42"), "rollout evaluation must be deterministic per profile")
	}
	assert.False(t, m.Enabled("canary", ""), "percentage rollout requires a profile id")
}

func TestEnabled_RolloutRoughlyMatchesPercentage(t *testing.T) {
	m := NewManager("half=50%")
	on := 0
	for i := 0; i < 1000; i++ {
		if m.Enabled("half", "profile-"+string(rune('a'+i%26))+string(rune('0'+i%10))+string(rune(i))) {
			on++
		}
	}
	assert.InDelta(t, 500, on, 150)
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, Y = 20% ,z=off,=on,w= ")

	assert.Equal(t, []string{"x", "y", "z"}, m.Names())

	snap := m.Snapshot("p1")
	assert.Len(t, snap, 3)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(ChatAssistant, "p1"))
}
