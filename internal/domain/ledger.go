package domain

import (
	"sort"
	"sync"
)

type unitVersions struct {
	current  string
	previous string
}

// VersionLedger tracks the version currently deployed to each unit and
// the version it ran before. It is the only mutable state shared
// between deploy, rollback, and monitoring, so all access goes through
// the mutex; monitoring may run on a separate goroutine from
// deploy/rollback.
type VersionLedger struct {
	mu    sync.RWMutex
	units map[UnitID]unitVersions
}

func NewVersionLedger() *VersionLedger {
	return &VersionLedger{units: make(map[UnitID]unitVersions)}
}

// Seed records the version a unit was already running before the
// rollout touched it. No-op if the unit is already tracked.
func (l *VersionLedger) Seed(id UnitID, version string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.units[id]; !ok {
		l.units[id] = unitVersions{current: version}
	}
}

// Record registers a successful deploy: the unit's current version
// shifts to previous and the new version becomes current.
func (l *VersionLedger) Record(id UnitID, version string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	uv := l.units[id]
	uv.previous = uv.current
	uv.current = version
	l.units[id] = uv
}

// Revert restores the unit's previous version as current and returns
// it. The second return is false when no prior version is known.
func (l *VersionLedger) Revert(id UnitID) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	uv, ok := l.units[id]
	if !ok || uv.previous == "" {
		return "", false
	}
	uv.current = uv.previous
	l.units[id] = uv
	return uv.current, true
}

// Current returns the version the unit is running.
func (l *VersionLedger) Current(id UnitID) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	uv, ok := l.units[id]
	return uv.current, ok
}

// Previous returns the version the unit ran before its last deploy.
func (l *VersionLedger) Previous(id UnitID) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	uv, ok := l.units[id]
	if !ok || uv.previous == "" {
		return "", false
	}
	return uv.previous, true
}

// Tracked returns all tracked unit IDs in ascending order.
func (l *VersionLedger) Tracked() []UnitID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]UnitID, 0, len(l.units))
	for id := range l.units {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
