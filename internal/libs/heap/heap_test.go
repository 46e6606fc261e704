package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type candidate struct {
	id    string
	score float64
}

func (c candidate) ID() string     { return c.id }
func (c candidate) Score() float64 { return c.score }

func TestPopStrongestOrdersByScore(t *testing.T) {
	s := NewBoundedSet(0)
	s.Add(candidate{id: "a", score: 62})
	s.Add(candidate{id: "b", score: 91})
	s.Add(candidate{id: "c", score: 75})

	assert.Equal(t, "b", s.PopStrongest().ID())
	assert.Equal(t, "c", s.PopStrongest().ID())
	assert.Equal(t, "a", s.PopStrongest().ID())
	assert.Nil(t, s.PopStrongest())
}

func TestUnboundedNeverEvicts(t *testing.T) {
	evicted := 0
	s := NewBoundedSet(0)
	s.OnEvict(func(Ranked) { evicted++ })

	for i := 0; i < 100; i++ {
		s.Add(candidate{id: string(rune('a' + i)), score: float64(i + 1)})
	}

	assert.Equal(t, 100, s.Len())
	assert.Zero(t, evicted)
}

func TestCapEvictsWeakest(t *testing.T) {
	var dropped []string
	s := NewBoundedSet(2)
	s.OnEvict(func(item Ranked) { dropped = append(dropped, item.ID()) })

	s.Add(candidate{id: "low", score: 61})
	s.Add(candidate{id: "mid", score: 70})
	s.Add(candidate{id: "high", score: 88})

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"low"}, dropped)
	assert.Equal(t, "high", s.PopStrongest().ID())
	assert.Equal(t, "mid", s.PopStrongest().ID())
}

func TestAddReplacesExistingID(t *testing.T) {
	s := NewBoundedSet(0)
	s.Add(candidate{id: "a", score: 60})
	s.Add(candidate{id: "a", score: 80})

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 80.0, s.PopStrongest().Score())
}

func TestAddRejectsNonPositiveScore(t *testing.T) {
	s := NewBoundedSet(0)
	s.Add(candidate{id: "zero", score: 0})
	assert.True(t, s.IsEmpty())
}
