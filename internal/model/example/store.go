package example

// Store exposes example retrieval for handlers and the terminal client.
type Store interface {
	List() []Example
	FindByID(id string) (Example, bool)
	At(index int) (Example, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Example
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied examples.
func NewMemoryStore(items []Example) *MemoryStore {
	return &MemoryStore{items: append([]Example(nil), items...)}
}

// List returns the configured examples in display order.
func (s *MemoryStore) List() []Example {
	return append([]Example(nil), s.items...)
}

// FindByID looks up an example by identifier.
func (s *MemoryStore) FindByID(id string) (Example, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Example{}, false
}

// At 按显示顺序取第 index 个（从 0 开始）。
func (s *MemoryStore) At(index int) (Example, bool) {
	if index < 0 || index >= len(s.items) {
		return Example{}, false
	}
	return s.items[index], true
}
