package domain

import (
	"context"
	"sync"
	"time"
)

// Shared test doubles for the rollout controllers. Each double records
// enough to assert on call order and arguments without reaching for a
// mocking framework.

func healthyAt(ts time.Time) HealthSnapshot {
	return HealthSnapshot{ErrorRate: 0.001, LatencyP99: 80, Performance: 0.95, Timestamp: ts}
}

func unhealthyAt(ts time.Time) HealthSnapshot {
	return HealthSnapshot{ErrorRate: 0.08, LatencyP99: 450, Performance: 0.95, Timestamp: ts}
}

func testPool() []UnitInfo {
	return []UnitInfo{
		{ID: "eurusd", Volume: 900, Version: "v1"},
		{ID: "gbpusd", Volume: 700, Version: "v1"},
		{ID: "usdjpy", Volume: 700, Version: "v1"},
		{ID: "audusd", Volume: 300, Version: "v1"},
		{ID: "usdchf", Volume: 100, Version: "v1"},
	}
}

type stubCatalog struct {
	units []UnitInfo
	err   error
}

func (s *stubCatalog) List(context.Context) ([]UnitInfo, error) { return s.units, s.err }

type deployCall struct {
	Unit    UnitID
	Version string
}

type recordingDeployer struct {
	mu    sync.Mutex
	calls []deployCall
	fail  func(unit UnitID, version string) error
}

func (d *recordingDeployer) Deploy(_ context.Context, unit UnitID, version string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		if err := d.fail(unit, version); err != nil {
			return err
		}
	}
	d.calls = append(d.calls, deployCall{Unit: unit, Version: version})
	return nil
}

func (d *recordingDeployer) deployed() []deployCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]deployCall, len(d.calls))
	copy(out, d.calls)
	return out
}

// scriptedMetrics replays a fixed snapshot sequence, repeating the last
// entry once the script runs out.
type scriptedMetrics struct {
	mu        sync.Mutex
	snapshots []HealthSnapshot
	baseline  HealthSnapshot
	snapErr   error
	calls     int
}

func (m *scriptedMetrics) Snapshot(context.Context, []UnitID) (HealthSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapErr != nil {
		return HealthSnapshot{}, m.snapErr
	}
	i := m.calls
	if i >= len(m.snapshots) {
		i = len(m.snapshots) - 1
	}
	m.calls++
	return m.snapshots[i], nil
}

func (m *scriptedMetrics) Baseline(context.Context, []UnitID) (HealthSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseline, nil
}

func (m *scriptedMetrics) snapshotCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type memReleaseRepo struct {
	mu       sync.Mutex
	releases map[ReleaseID]Release
}

func newMemReleaseRepo() *memReleaseRepo {
	return &memReleaseRepo{releases: make(map[ReleaseID]Release)}
}

func (r *memReleaseRepo) Create(_ context.Context, rel Release) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.releases[rel.ID]; ok {
		return ErrAlreadyExists
	}
	r.releases[rel.ID] = rel
	return nil
}

func (r *memReleaseRepo) Get(_ context.Context, id ReleaseID) (Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.releases[id]
	if !ok {
		return Release{}, ErrNotFound
	}
	return rel, nil
}

func (r *memReleaseRepo) List(context.Context) ([]Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Release, 0, len(r.releases))
	for _, rel := range r.releases {
		out = append(out, rel)
	}
	return out, nil
}

func (r *memReleaseRepo) Update(_ context.Context, rel Release) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.releases[rel.ID]; !ok {
		return ErrNotFound
	}
	r.releases[rel.ID] = rel
	return nil
}

func (r *memReleaseRepo) Delete(_ context.Context, id ReleaseID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.releases[id]; !ok {
		return ErrNotFound
	}
	delete(r.releases, id)
	return nil
}

type memEnvironmentRepo struct {
	mu   sync.Mutex
	envs map[EnvironmentID]Environment
}

func newMemEnvironmentRepo() *memEnvironmentRepo {
	return &memEnvironmentRepo{envs: make(map[EnvironmentID]Environment)}
}

func (r *memEnvironmentRepo) Put(_ context.Context, e Environment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs[e.Name] = e
	return nil
}

func (r *memEnvironmentRepo) Get(_ context.Context, id EnvironmentID) (Environment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.envs[id]
	if !ok {
		return Environment{}, ErrNotFound
	}
	return e, nil
}

func (r *memEnvironmentRepo) List(context.Context) ([]Environment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Environment, 0, len(r.envs))
	for _, e := range r.envs {
		out = append(out, e)
	}
	return out, nil
}

func (r *memEnvironmentRepo) SetActive(_ context.Context, id EnvironmentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.envs[id]; !ok {
		return ErrNotFound
	}
	for name, e := range r.envs {
		e.Active = name == id
		r.envs[name] = e
	}
	return nil
}

func (r *memEnvironmentRepo) Active(context.Context) (Environment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.envs {
		if e.Active {
			return e, nil
		}
	}
	return Environment{}, ErrNotFound
}

type memRecordRepo struct {
	mu      sync.Mutex
	records []RollbackRecord
	err     error
}

func (r *memRecordRepo) Append(_ context.Context, rec RollbackRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *memRecordRepo) List(context.Context) ([]RollbackRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RollbackRecord, len(r.records))
	copy(out, r.records)
	return out, nil
}

type stubProvisioner struct {
	mu        sync.Mutex
	endpoint  string
	provErr   error
	teardowns []EnvironmentID
}

func (p *stubProvisioner) Provision(_ context.Context, env EnvironmentID, _ string) (string, error) {
	if p.provErr != nil {
		return "", p.provErr
	}
	return p.endpoint, nil
}

func (p *stubProvisioner) Teardown(_ context.Context, env EnvironmentID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardowns = append(p.teardowns, env)
	return nil
}

type stubChecker struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (c *stubChecker) Check(context.Context, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.calls < len(c.errs) {
		err = c.errs[c.calls]
	}
	c.calls++
	return err
}

type weightCall struct {
	Env    EnvironmentID
	Weight float64
}

type recordingRouter struct {
	mu    sync.Mutex
	calls []weightCall
	err   error
}

func (r *recordingRouter) SetWeights(_ context.Context, env EnvironmentID, weight float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, weightCall{Env: env, Weight: weight})
	return nil
}

type stubRegistry struct {
	mu       sync.Mutex
	loadErr  error
	loaded   []string
	promoted []string
}

func (r *stubRegistry) Load(_ context.Context, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return r.loadErr
	}
	r.loaded = append(r.loaded, version)
	return nil
}

func (r *stubRegistry) PromoteToProduction(_ context.Context, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promoted = append(r.promoted, version)
	return nil
}
