package domain

import (
	"math"
	"sort"
)

// UnitID identifies a deployment unit: the smallest independently
// addressable entity a version is deployed to, e.g. a single tradeable
// instrument.
type UnitID string

// UnitInfo describes a registered unit. Volume drives selection order;
// Version is the version currently deployed to the unit as known by the
// catalog.
type UnitInfo struct {
	ID      UnitID
	Volume  float64
	Version string
	Labels  map[string]string
}

// DeploymentUnit is the rollout controllers' view of a unit: the version
// it currently runs and the last health observation covering it.
type DeploymentUnit struct {
	ID           UnitID
	Version      string
	LastSnapshot HealthSnapshot
}

// SelectionOrder returns the pool in the canonical rollout order:
// volume descending, then ID ascending. The order is deterministic for
// a given catalog snapshot, so selections are reproducible in audits.
func SelectionOrder(pool []UnitInfo) []UnitInfo {
	ordered := make([]UnitInfo, len(pool))
	copy(ordered, pool)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Volume != ordered[j].Volume {
			return ordered[i].Volume > ordered[j].Volume
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// CanaryUnits returns the first count unit IDs in selection order.
func CanaryUnits(pool []UnitInfo, count int) []UnitID {
	ordered := SelectionOrder(pool)
	if count > len(ordered) {
		count = len(ordered)
	}
	ids := make([]UnitID, count)
	for i := 0; i < count; i++ {
		ids[i] = ordered[i].ID
	}
	return ids
}

// CoverageUnits returns the unit IDs covering the given fraction of the
// pool: a prefix of the selection order of length ceil(fraction*N), but
// never shorter than floor. Because every coverage set is a prefix of
// the same order, the set for a larger fraction is always a superset of
// the set for a smaller one, so later stages never drop units proven
// healthy earlier.
func CoverageUnits(pool []UnitInfo, fraction float64, floor int) []UnitID {
	ordered := SelectionOrder(pool)
	n := int(math.Ceil(fraction * float64(len(ordered))))
	if n < floor {
		n = floor
	}
	if n > len(ordered) {
		n = len(ordered)
	}
	ids := make([]UnitID, n)
	for i := 0; i < n; i++ {
		ids[i] = ordered[i].ID
	}
	return ids
}
