package models

import "sync"

// RewardLedger holds the rewards granted to one user. Entries are never
// removed. Readers get copies, so iterating a snapshot never races with
// concurrent appends.
type RewardLedger struct {
	mu      sync.RWMutex
	rewards []UserReward
	byName  map[string]struct{}
}

// Has reports whether a reward for the named attraction was already recorded.
func (l *RewardLedger) Has(attractionName string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.byName[attractionName]
	return ok
}

// Add appends a reward unconditionally.
func (l *RewardLedger) Add(r UserReward) {
	l.mu.Lock()
	l.add(r)
	l.mu.Unlock()
}

// AddIfAbsent appends the reward only if the attraction has no reward yet.
// The check and the append happen under the same lock.
func (l *RewardLedger) AddIfAbsent(r UserReward) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byName[r.Attraction.Name]; ok {
		return false
	}
	l.add(r)
	return true
}

func (l *RewardLedger) add(r UserReward) {
	if l.byName == nil {
		l.byName = make(map[string]struct{})
	}
	l.rewards = append(l.rewards, r)
	l.byName[r.Attraction.Name] = struct{}{}
}

// RewardedAttractions returns the set of attraction names already rewarded.
func (l *RewardLedger) RewardedAttractions() map[string]struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]struct{}, len(l.byName))
	for name := range l.byName {
		out[name] = struct{}{}
	}
	return out
}

// Snapshot returns a copy of the recorded rewards.
func (l *RewardLedger) Snapshot() []UserReward {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]UserReward, len(l.rewards))
	copy(out, l.rewards)
	return out
}

func (l *RewardLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rewards)
}

// TotalPoints sums the points of every recorded reward.
func (l *RewardLedger) TotalPoints() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0
	for _, r := range l.rewards {
		total += r.Points
	}
	return total
}
