package ruletable

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
	"go_mock_dispatch/utils"

	"github.com/google/uuid"
)

// DefinitionSource supplies the persisted definition snapshot.
type DefinitionSource interface {
	// Snapshot must read the current state; it may not reuse a read that
	// started before the call.
	Snapshot(ctx context.Context) ([]*model.MockDefinition, error)
}

// Manager owns the installed table and the temporary definitions layered on
// top of it.
//
// Reloads are serialized on buildMu and coalesced by generation: a caller
// whose request was already covered by a finished build returns without
// building again.
type Manager struct {
	source DefinitionSource

	current   atomic.Pointer[Table]
	requested atomic.Uint64
	built     atomic.Uint64
	buildMu   sync.Mutex

	tempMu    sync.RWMutex
	temporary map[string]*model.MockDefinition // key: METHOD apiName
}

func NewManager(source DefinitionSource) *Manager {
	m := &Manager{
		source:    source,
		temporary: make(map[string]*model.MockDefinition),
	}
	m.current.Store(emptyTable())
	return m
}

// Current returns the installed table. Never nil.
func (m *Manager) Current() *Table {
	return m.current.Load()
}

func (m *Manager) Dispatch(ctx context.Context, req model.RequestInfo) (*model.MatchRule, bool) {
	return m.Current().Dispatch(ctx, req)
}

// Reload rebuilds the table from a fresh snapshot and installs it atomically.
// Safe to call concurrently and repeatedly.
func (m *Manager) Reload(ctx context.Context) (*Table, error) {
	gen := m.requested.Add(1)

	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	if m.built.Load() >= gen {
		return m.Current(), nil
	}
	// every request issued so far is covered by this build
	target := m.requested.Load()

	persisted, err := m.source.Snapshot(ctx)
	if err != nil {
		utils.GetLogger().Errorf("rule table reload failed, keeping generation %d: %v", m.Current().Generation, err)
		return m.Current(), fmt.Errorf("load definitions: %w", err)
	}
	for _, d := range persisted {
		d.Source = model.SourcePersisted
	}

	start := time.Now()
	table := Build(target, persisted, m.Temporaries())
	m.current.Store(table)
	m.built.Store(target)

	log := utils.GetLogger()
	for _, f := range table.Failures {
		log.Warnf("mock definition excluded from rule table: id=%s api=%s method=%s reason=%s",
			f.DefinitionID, f.APIName, f.Method, f.Reason)
	}
	log.Infof("rule table installed: generation=%d rules=%d failures=%d cost=%v",
		table.Generation, table.Len(), len(table.Failures), time.Since(start))
	return table, nil
}

func temporaryKey(apiName, method string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = model.DefaultMethod
	}
	return method + " " + strings.TrimPrefix(strings.TrimSpace(apiName), "/")
}

// PutTemporary stores temporary definitions keyed by apiName+method; a later
// upload for the same key supersedes the earlier one. The table is not
// rebuilt until the next Reload.
func (m *Manager) PutTemporary(defs ...*model.MockDefinition) []*model.MockDefinition {
	now := time.Now()
	stored := make([]*model.MockDefinition, 0, len(defs))

	m.tempMu.Lock()
	defer m.tempMu.Unlock()
	for _, def := range defs {
		d := def.Clone()
		d.Normalize()
		d.Source = model.SourceTemporary
		if d.ID == "" {
			d.ID = "tmp-" + uuid.NewString()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		d.UpdatedAt = now
		m.temporary[temporaryKey(d.APIName, d.Method)] = d
		stored = append(stored, d.Clone())
	}
	return stored
}

// DeleteTemporary removes the temporary definition for apiName+method.
func (m *Manager) DeleteTemporary(apiName, method string) bool {
	key := temporaryKey(apiName, method)
	m.tempMu.Lock()
	defer m.tempMu.Unlock()
	if _, ok := m.temporary[key]; !ok {
		return false
	}
	delete(m.temporary, key)
	return true
}

// ClearTemporary drops every temporary definition and reports how many were held.
func (m *Manager) ClearTemporary() int {
	m.tempMu.Lock()
	defer m.tempMu.Unlock()
	n := len(m.temporary)
	m.temporary = make(map[string]*model.MockDefinition)
	return n
}

// Temporaries returns copies of the temporary definitions ordered by key.
func (m *Manager) Temporaries() []*model.MockDefinition {
	m.tempMu.RLock()
	defer m.tempMu.RUnlock()
	keys := make([]string, 0, len(m.temporary))
	for k := range m.temporary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*model.MockDefinition, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.temporary[k].Clone())
	}
	return out
}

// FindDefinition resolves a definition id against the installed table.
func (m *Manager) FindDefinition(_ context.Context, id string) (*model.MockDefinition, error) {
	if rule, ok := m.Current().Rule(id); ok && rule.Definition != nil {
		return rule.Definition, nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrDefinitionNotFound, id)
}
