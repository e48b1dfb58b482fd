package service_test

import (
	"testing"
	"time"

	"github.com/mtlprog/worklens/internal/config"
	"github.com/mtlprog/worklens/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestNextSyncDelay_DoublesUntilCap(t *testing.T) {
	delay := config.InitialSyncDelay
	expected := []time.Duration{
		4 * time.Second,
		8 * time.Second,
		15 * time.Second,
		15 * time.Second,
	}

	for _, want := range expected {
		delay = service.NextSyncDelay(delay)
		assert.Equal(t, want, delay)
	}
}

func TestNextSyncDelay_Monotonic(t *testing.T) {
	previous := config.InitialSyncDelay
	for i := 0; i < 10; i++ {
		next := service.NextSyncDelay(previous)
		assert.GreaterOrEqual(t, next, previous)
		assert.LessOrEqual(t, next, config.MaxSyncDelay)
		previous = next
	}
}
