// Package store provides in-memory implementations of the statement
// persistence interfaces, used by tests and dev mode.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/taxform-engine/engine"
	"github.com/warp/taxform-engine/forms"
	"github.com/warp/taxform-engine/statement"
)

// =============================================================================
// MEMORY - In-memory RecordSource + Store
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	properties map[engine.PropertyID]engine.Property
	statements map[string]statement.Statement // by statement ID
	byKey      map[string]string              // statement key -> statement ID
}

func NewMemory() *Memory {
	return &Memory{
		properties: make(map[engine.PropertyID]engine.Property),
		statements: make(map[string]statement.Statement),
		byKey:      make(map[string]string),
	}
}

// PutProperty adds or replaces a property with its attached records.
func (m *Memory) PutProperty(prop engine.Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[prop.ID] = prop
}

// =============================================================================
// RECORD SOURCE
// =============================================================================

func (m *Memory) Properties(_ context.Context, owner engine.UserID) ([]engine.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.Property
	for _, p := range m.properties {
		if p.OwnerID == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Property(_ context.Context, owner engine.UserID, id engine.PropertyID) (*engine.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.properties[id]
	if !ok || p.OwnerID != owner {
		return nil, nil
	}
	return &p, nil
}

// =============================================================================
// STATEMENT STORE
// =============================================================================

func (m *Memory) SaveStatement(_ context.Context, st statement.Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byKey[st.Key()]; exists {
		return engine.ErrDuplicateStatement
	}
	m.statements[st.ID] = st
	m.byKey[st.Key()] = st.ID
	return nil
}

func (m *Memory) GetStatement(_ context.Context, owner engine.UserID, id string) (*statement.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.statements[id]
	if !ok || st.UserID != owner {
		return nil, nil
	}
	return &st, nil
}

func (m *Memory) ListStatements(_ context.Context, owner engine.UserID) ([]statement.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []statement.Statement
	for _, st := range m.statements {
		if st.UserID == owner {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaxYear != out[j].TaxYear {
			return out[i].TaxYear > out[j].TaxYear
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) LatestUpTo(_ context.Context, owner engine.UserID, ft forms.FormType, propertyID engine.PropertyID, maxYear int) (*statement.Statement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *statement.Statement
	for id := range m.statements {
		st := m.statements[id]
		if st.UserID != owner || st.FormType != ft || st.PropertyID != propertyID {
			continue
		}
		if st.TaxYear > maxYear {
			continue
		}
		if best == nil || st.TaxYear > best.TaxYear {
			copied := st
			best = &copied
		}
	}
	return best, nil
}
