package state

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemStore is an in-memory Store used by tests and by the server when it
// runs without a database (MONGO_URI=memory). It supports the selector
// subset the engine uses: field equality, dotted paths and $gte.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string]bson.M
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string]bson.M)}
}

// Get decodes the record stored under key into out.
func (s *MemStore) Get(ctx context.Context, key string, out interface{}) error {
	s.mu.RLock()
	doc, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

// Exists reports whether key holds a record.
func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	_, ok := s.docs[key]
	s.mu.RUnlock()
	return ok, nil
}

// Put writes the record under key, replacing any previous value.
func (s *MemStore) Put(ctx context.Context, key string, record interface{}) error {
	raw, err := bson.Marshal(record)
	if err != nil {
		return err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return err
	}
	doc["_id"] = key
	s.mu.Lock()
	s.docs[key] = doc
	s.mu.Unlock()
	return nil
}

// Delete removes the record under key.
func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.docs, key)
	s.mu.Unlock()
	return nil
}

// Query decodes every record matching selector into out, a pointer to a
// slice.
func (s *MemStore) Query(ctx context.Context, selector bson.M, out interface{}) error {
	outVal := reflect.ValueOf(out).Elem()
	elemType := outVal.Type().Elem()
	result := reflect.MakeSlice(outVal.Type(), 0, 0)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if !matchSelector(doc, selector) {
			continue
		}
		raw, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, elem.Elem())
	}
	outVal.Set(result)
	return nil
}

func matchSelector(doc bson.M, selector bson.M) bool {
	for field, cond := range selector {
		value, ok := lookupPath(doc, field)
		if cm, isOp := cond.(bson.M); isOp {
			if !ok {
				return false
			}
			for op, arg := range cm {
				if op != "$gte" {
					return false
				}
				a, aOK := toFloat(value)
				b, bOK := toFloat(arg)
				if !aOK || !bOK || a < b {
					return false
				}
			}
			continue
		}
		if !ok || !valuesEqual(value, cond) {
			return false
		}
	}
	return true
}

func lookupPath(doc bson.M, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = doc
	for _, p := range parts {
		switch m := current.(type) {
		case bson.M:
			v, ok := m[p]
			if !ok {
				return nil, false
			}
			current = v
		case bson.D:
			found := false
			for _, e := range m {
				if e.Key == p {
					current = e.Value
					found = true
					break
				}
			}
			if !found {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return current, true
}

func valuesEqual(a, b interface{}) bool {
	af, aOK := toFloat(a)
	bf, bOK := toFloat(b)
	if aOK && bOK {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
