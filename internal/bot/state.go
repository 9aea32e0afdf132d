package bot

import (
	"sync"
	"time"
)

// interactionTTL is how long Discord accepts responses to an interaction
const interactionTTL = 15 * time.Minute

// cooldowns tracks per-user, per-command cooldowns
type cooldowns struct {
	mu     sync.Mutex
	period time.Duration
	until  map[string]time.Time
}

func newCooldowns(period time.Duration) *cooldowns {
	return &cooldowns{
		period: period,
		until:  make(map[string]time.Time),
	}
}

// take starts a cooldown for user on command.
// If one is already running it returns the time left and false.
func (c *cooldowns) take(command, user string, now time.Time) (time.Duration, bool) {
	if c.period <= 0 {
		return 0, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := command + ":" + user
	if until, ok := c.until[key]; ok && now.Before(until) {
		return until.Sub(now), false
	}
	c.until[key] = now.Add(c.period)
	return 0, true
}

func (c *cooldowns) prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for key, until := range c.until {
		if !now.Before(until) {
			delete(c.until, key)
			pruned++
		}
	}
	return pruned
}

// seenInteractions remembers interaction ids so gateway redeliveries are ignored
type seenInteractions struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newSeenInteractions() *seenInteractions {
	return &seenInteractions{seen: make(map[string]time.Time)}
}

// mark records id and reports whether it was new
func (s *seenInteractions) mark(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = now
	return true
}

func (s *seenInteractions) prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, at := range s.seen {
		if now.Sub(at) >= interactionTTL {
			delete(s.seen, id)
			pruned++
		}
	}
	return pruned
}
