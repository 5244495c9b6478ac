package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAxisPosition(t *testing.T) {
	axis := Axis{
		LevelNumber: 1,
		Label:       "Browser",
		Values: []AxisValue{
			{ValueLabel: "Chrome", SortOrder: 1},
			{ValueLabel: "Firefox", SortOrder: 2},
		},
	}

	assert.Equal(t, 1, axis.Position("Chrome"))
	assert.Equal(t, 2, axis.Position("Firefox"))
	assert.Equal(t, 0, axis.Position("Safari"))
}

func TestAnalyticalValues(t *testing.T) {
	av := AnalyticalValues{"1": "Chrome", "2": ""}

	assert.Equal(t, "Chrome", av.Value(1))
	assert.Equal(t, "", av.Value(2))
	assert.Equal(t, "", AnalyticalValues(nil).Value(1))
	assert.Equal(t, AnalyticalValues{"1": "Chrome"}, av.Clone())
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))
}

func TestRunCaseTester(t *testing.T) {
	rc := RunCase{TesterEmail: "qa@example.com"}
	assert.Equal(t, "qa@example.com", rc.Tester())

	rc.TesterName = "Quinn"
	assert.Equal(t, "Quinn", rc.Tester())
}
