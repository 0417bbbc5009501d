package counter

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/logger"
	"github.com/teranos/attrgen/sym"
)

// Seeder loads the persisted counter values the service starts from.
type Seeder func(ctx context.Context) (map[string]int64, error)

// StaticSeed returns a Seeder for a fixed map.
func StaticSeed(values map[string]int64) Seeder {
	return func(context.Context) (map[string]int64, error) {
		return values, nil
	}
}

type state struct {
	value       int64
	version     int64
	lastPatched int64
}

func (s *state) dirty() bool {
	return s.version > s.lastPatched
}

// VersionInfo reports where a counter stands relative to its last flush.
type VersionInfo struct {
	Current     int64 `json:"current" yaml:"current"`
	LastPatched int64 `json:"last_patched" yaml:"last_patched"`
}

// Service holds versioned counters for the create flow. Counters are seeded
// once from persisted configuration, can be ratcheted up by newer
// configuration, and report their changes as patches.
type Service struct {
	seed Seeder

	initGroup   singleflight.Group
	initialized atomic.Bool

	// mu guards counters. Increments hold it for their whole read-modify-write.
	mu       sync.Mutex
	counters map[string]*state
	versions atomic.Int64

	logger *zap.SugaredLogger
}

// NewService creates a Service. seed may be nil.
func NewService(seed Seeder) *Service {
	if seed == nil {
		seed = StaticSeed(nil)
	}
	return &Service{
		seed:     seed,
		counters: make(map[string]*state),
		logger:   logger.WithSymbol(logger.ComponentLogger("counter.service"), sym.Counter),
	}
}

func (s *Service) nextVersion() int64 {
	return s.versions.Add(1)
}

// initialize seeds the counters exactly once. Concurrent first callers wait
// on the same in-flight seeding. A failed seed is retried on the next call.
func (s *Service) initialize(ctx context.Context) error {
	if s.initialized.Load() {
		return nil
	}

	_, err, _ := s.initGroup.Do("init", func() (interface{}, error) {
		if s.initialized.Load() {
			return nil, nil
		}

		seeded, err := s.seed(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to seed counters")
		}

		s.mu.Lock()
		for _, id := range sortedKeys(seeded) {
			v := s.nextVersion()
			s.counters[id] = &state{value: seeded[id], version: v, lastPatched: v}
			s.logger.Debugw("Initialized counter from config",
				logger.FieldCounterID, id,
				logger.FieldValue, seeded[id],
				logger.FieldVersion, v)
		}
		count := len(s.counters)
		s.mu.Unlock()

		s.initialized.Store(true)
		s.logger.Debugw("Counter service initialized", logger.FieldCount, count)
		return nil, nil
	})
	return err
}

// ratchet raises id to cfg[id] when the configured value is higher. Lower
// configured values are ignored. Callers hold mu.
func (s *Service) ratchet(id string, cfg map[string]int64) {
	configured, ok := cfg[id]
	if !ok {
		return
	}

	current, exists := s.counters[id]
	if exists && configured <= current.value {
		s.logger.Debugw("Counter not updated from config, current value is higher",
			logger.FieldCounterID, id,
			"config_value", configured,
			logger.FieldValue, current.value)
		return
	}

	var lastPatched int64
	if exists {
		lastPatched = current.lastPatched
	}
	v := s.nextVersion()
	s.counters[id] = &state{value: configured, version: v, lastPatched: lastPatched}
	s.logger.Debugw("Counter raised from config",
		logger.FieldCounterID, id,
		logger.FieldValue, configured,
		logger.FieldVersion, v)
}

// Next returns the current value of id and advances it by one. cfg, when
// non-nil, is applied as a ratchet first.
func (s *Service) Next(ctx context.Context, id string, cfg map[string]int64) (int64, error) {
	if err := s.initialize(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ratchet(id, cfg)

	var value, lastPatched int64
	if current, ok := s.counters[id]; ok {
		value = current.value
		lastPatched = current.lastPatched
	}
	v := s.nextVersion()
	s.counters[id] = &state{value: value + 1, version: v, lastPatched: lastPatched}

	s.logger.Debugw("Incremented counter",
		logger.FieldCounterID, id,
		logger.FieldValue, value,
		logger.FieldVersion, v)
	return value, nil
}

// Current returns the value of id without advancing it. The ratchet still
// applies.
func (s *Service) Current(ctx context.Context, id string, cfg map[string]int64) (int64, error) {
	if err := s.initialize(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ratchet(id, cfg)
	if current, ok := s.counters[id]; ok {
		return current.value, nil
	}
	return 0, nil
}

// Counter adapts id to a counter Func. Errors cannot surface through a Func,
// so they are logged and 0 is returned; use Next directly when that matters.
func (s *Service) Counter(ctx context.Context, id string, cfg map[string]int64) Func {
	return func() int64 {
		v, err := s.Next(ctx, id, cfg)
		if err != nil {
			s.logger.Errorw("Failed to advance counter",
				logger.FieldCounterID, id,
				logger.FieldError, err)
			return 0
		}
		return v
	}
}

// PendingPatches returns a patch for every counter changed since the last
// call, ordered by id, and marks those counters as flushed.
func (s *Service) PendingPatches() []Patch {
	s.mu.Lock()
	defer s.mu.Unlock()

	var patches []Patch
	for _, id := range sortedKeys(s.counters) {
		st := s.counters[id]
		if !st.dirty() {
			continue
		}
		patches = append(patches, Patch{ID: id, Value: st.value})
		st.lastPatched = st.version
	}

	s.logger.Debugw("Collected pending patches", logger.FieldCount, len(patches))
	return patches
}

// Versions reports current and last flushed version per counter.
func (s *Service) Versions() map[string]VersionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]VersionInfo, len(s.counters))
	for id, st := range s.counters {
		out[id] = VersionInfo{Current: st.version, LastPatched: st.lastPatched}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
