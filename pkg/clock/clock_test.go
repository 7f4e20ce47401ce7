package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesNamedZone(t *testing.T) {
	c, err := New("America/Bogota")
	require.NoError(t, err)

	_, offset := c.Now().Zone()
	assert.Equal(t, -5*60*60, offset)
}

func TestNewRejectsUnknownZone(t *testing.T) {
	_, err := New("Mars/Olympus")
	assert.Error(t, err)
}

func TestEmptyZoneFallsBackToDefaultZone(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultZone, c.Now().Location().String())

	_, offset := c.Now().Zone()
	assert.Equal(t, -5*60*60, offset)
}

func TestFixed(t *testing.T) {
	ts := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	assert.True(t, Fixed(ts).Now().Equal(ts))
}
