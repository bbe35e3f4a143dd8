package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterFunc func(ctx context.Context) (map[string]int, error)

func (f counterFunc) GenreTrackCounts(ctx context.Context) (map[string]int, error) { return f(ctx) }

func TestState_AdmitUntilReached(t *testing.T) {
	s := New(2)
	assert.Equal(t, 2, s.Max())
	assert.False(t, s.Reached("Rock"))
	s.Admit("Rock")
	assert.False(t, s.Reached("Rock"))
	s.Admit("Rock")
	assert.True(t, s.Reached("Rock"))
	assert.False(t, s.Reached("Jazz"))
	assert.Equal(t, 2, s.Count("Rock"))
	assert.Equal(t, []string{"Rock"}, s.Genres())
}

func TestState_ZeroMax(t *testing.T) {
	assert.True(t, New(0).Reached("Pop"))
}

func TestResume(t *testing.T) {
	counter := counterFunc(func(context.Context) (map[string]int, error) {
		return map[string]int{"Rock": 3, "Jazz": 1}, nil
	})
	s, err := Resume(context.Background(), 3, counter)
	require.NoError(t, err)
	assert.True(t, s.Reached("Rock"))
	assert.False(t, s.Reached("Jazz"))
	assert.Equal(t, []string{"Jazz", "Rock"}, s.Genres())

	fresh, err := Load(context.Background(), ModeFresh, 3, counter)
	require.NoError(t, err)
	assert.False(t, fresh.Reached("Rock"))

	boom := errors.New("db down")
	_, err = Load(context.Background(), ModeResume, 3, counterFunc(func(context.Context) (map[string]int, error) {
		return nil, boom
	}))
	require.ErrorIs(t, err, boom)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFresh, m)
	m, err = ParseMode("resume")
	require.NoError(t, err)
	assert.Equal(t, ModeResume, m)
	_, err = ParseMode("sometimes")
	require.Error(t, err)
}
