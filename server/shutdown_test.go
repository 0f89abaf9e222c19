package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinator_Trigger(t *testing.T) {
	c := NewCoordinator(discardLogger())
	assert.False(t, c.ShuttingDown())

	assert.True(t, c.Trigger())
	assert.False(t, c.Trigger(), "flag is set exactly once")
	assert.True(t, c.ShuttingDown())

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed after Trigger")
	}
}

func TestCoordinator_StopWithoutSignal(t *testing.T) {
	c := NewCoordinator(discardLogger())
	c.Listen()
	c.Stop()
	c.Stop()

	assert.False(t, c.ShuttingDown())
}
