package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayDurationWithinRange(t *testing.T) {
	d := Delay{Min: 10 * time.Millisecond, Max: 50 * time.Millisecond}
	for i := 0; i < 20; i++ {
		got := d.Duration()
		assert.GreaterOrEqual(t, got, d.Min)
		assert.Less(t, got, d.Max)
	}
}

func TestDelayDurationDegenerateRange(t *testing.T) {
	d := Delay{Min: 5 * time.Millisecond, Max: 5 * time.Millisecond}
	assert.Equal(t, 5*time.Millisecond, d.Duration())
}

func TestSleepZeroReturnsImmediately(t *testing.T) {
	start := time.Now()
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffGrows(t *testing.T) {
	for n := 1; n <= 3; n++ {
		b := Backoff(n)
		assert.GreaterOrEqual(t, b, time.Duration(n)*2*time.Second)
		assert.Less(t, b, time.Duration(n)*2*time.Second+2*time.Second)
	}
}
