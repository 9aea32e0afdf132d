package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldowns(t *testing.T) {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	c := newCooldowns(10 * time.Minute)

	_, ok := c.take("pitroll", "42", now)
	assert.True(t, ok)

	left, ok := c.take("pitroll", "42", now.Add(4*time.Minute))
	assert.False(t, ok)
	assert.Equal(t, 6*time.Minute, left)

	_, ok = c.take("convertnikez", "42", now)
	assert.True(t, ok, "cooldowns are per command")

	_, ok = c.take("pitroll", "43", now)
	assert.True(t, ok, "cooldowns are per user")

	_, ok = c.take("pitroll", "42", now.Add(10*time.Minute))
	assert.True(t, ok, "cooldown ends after the period")
}

func TestCooldownsDisabled(t *testing.T) {
	c := newCooldowns(0)
	now := time.Now()

	for range 3 {
		_, ok := c.take("pitroll", "42", now)
		assert.True(t, ok)
	}
	assert.Zero(t, c.prune(now))
}

func TestCooldownsPrune(t *testing.T) {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	c := newCooldowns(time.Minute)
	c.take("pitroll", "1", now)
	c.take("pitroll", "2", now.Add(30*time.Second))

	assert.Equal(t, 1, c.prune(now.Add(time.Minute)))
	assert.Equal(t, 1, c.prune(now.Add(2*time.Minute)))
	assert.Zero(t, c.prune(now.Add(3*time.Minute)))
}

func TestSeenInteractions(t *testing.T) {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	seen := newSeenInteractions()

	assert.True(t, seen.mark("a", now))
	assert.False(t, seen.mark("a", now.Add(time.Second)))
	assert.True(t, seen.mark("b", now.Add(10*time.Minute)))

	assert.Equal(t, 1, seen.prune(now.Add(interactionTTL)))
	assert.True(t, seen.mark("a", now.Add(interactionTTL)), "pruned ids are forgotten")
	assert.False(t, seen.mark("b", now.Add(interactionTTL)))
}
