package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/ports"
)

// Memory is a map-backed document store with the same contract as the
// Postgres store. It backs the "memory" database driver for local runs and
// is the store the tests exercise services against.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
	hub         *hub
}

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]json.RawMessage),
		hub:         newHub(),
	}
}

var _ ports.DocStore = (*Memory)(nil)

func marshalDoc(doc any) (json.RawMessage, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

func (m *Memory) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][key]
	if !ok {
		return nil, entities.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *Memory) Set(ctx context.Context, collection, key string, doc any) error {
	data, err := marshalDoc(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]json.RawMessage)
	}
	m.collections[collection][key] = data
	m.mu.Unlock()

	m.hub.publish(collection, key, data)
	return nil
}

func (m *Memory) Create(ctx context.Context, collection, key string, doc any) (bool, error) {
	data, err := marshalDoc(doc)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	if _, exists := m.collections[collection][key]; exists {
		m.mu.Unlock()
		return false, nil
	}
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]json.RawMessage)
	}
	m.collections[collection][key] = data
	m.mu.Unlock()

	m.hub.publish(collection, key, data)
	return true, nil
}

func (m *Memory) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	m.mu.Lock()
	existing, ok := m.collections[collection][key]
	if !ok {
		m.mu.Unlock()
		return entities.ErrDocumentNotFound
	}

	var doc map[string]any
	if err := json.Unmarshal(existing, &doc); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("unmarshal document %s/%s: %w", collection, key, err)
	}

	for name, value := range fields {
		if err := setField(doc, name, value); err != nil {
			m.mu.Unlock()
			return err
		}
	}

	data, err := marshalDoc(doc)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.collections[collection][key] = data
	m.mu.Unlock()

	m.hub.publish(collection, key, data)
	return nil
}

// setField writes value at a possibly dotted path, creating intermediate
// objects as needed so "userTasks.u1" works on a page that never saw u1.
func setField(doc map[string]any, name string, value any) error {
	parts := strings.Split(name, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part]
		if !ok {
			child := map[string]any{}
			cur[part] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("field path %q traverses a non-object", name)
		}
		cur = child
	}
	// Round-trip through JSON so stored values stay plain JSON types.
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal field %q: %w", name, err)
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return fmt.Errorf("unmarshal field %q: %w", name, err)
	}
	cur[parts[len(parts)-1]] = plain
	return nil
}

func (m *Memory) Add(ctx context.Context, collection string, doc any) (string, error) {
	key := uuid.New().String()
	if err := m.Set(ctx, collection, key, doc); err != nil {
		return "", err
	}
	return key, nil
}

func (m *Memory) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	delete(m.collections[collection], key)
	m.mu.Unlock()

	m.hub.publish(collection, key, nil)
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, q ports.Query) ([]ports.Record, error) {
	m.mu.Lock()
	docs := make(map[string]json.RawMessage, len(m.collections[collection]))
	for key, doc := range m.collections[collection] {
		docs[key] = doc
	}
	m.mu.Unlock()

	type row struct {
		rec  ports.Record
		sort any
	}
	var rows []row
	for key, data := range docs {
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal document %s/%s: %w", collection, key, err)
		}
		if q.Field != "" && !jsonEqual(doc[q.Field], q.Equals) {
			continue
		}
		rows = append(rows, row{rec: ports.Record{Key: key, Data: data}, sort: doc[q.OrderBy]})
	}

	if q.OrderBy != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			less := lessJSON(rows[i].sort, rows[j].sort)
			if q.Descending {
				return !less && !jsonEqual(rows[i].sort, rows[j].sort)
			}
			return less
		})
	}

	records := make([]ports.Record, len(rows))
	for i, r := range rows {
		records[i] = r.rec
	}
	return records, nil
}

func jsonEqual(a, b any) bool {
	da, err1 := json.Marshal(a)
	db, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(da) == string(db)
}

func lessJSON(a, b any) bool {
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	if aok && bok {
		return fa < fb
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return sa < sb
	}
	da, _ := json.Marshal(a)
	db, _ := json.Marshal(b)
	return string(da) < string(db)
}

func (m *Memory) Subscribe(ctx context.Context, collection, key string, fn ports.SnapshotFunc) (func(), error) {
	// Register before the initial read so a concurrent write is either in
	// the snapshot or delivered as a change.
	cancel := m.hub.subscribe(collection, key, fn)

	m.mu.Lock()
	doc := m.collections[collection][key]
	m.mu.Unlock()

	fn(doc)
	return cancel, nil
}
