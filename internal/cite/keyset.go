// Package cite collects citation keys from pandoc documents.
package cite

// KeySet is an insertion-ordered set of citation keys.
// Keys are compared byte for byte; no Unicode normalization is applied, so
// differently normalized spellings of the same key are distinct entries.
type KeySet struct {
	keys  []string
	index map[string]struct{}
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{index: make(map[string]struct{})}
}

// Add inserts key and reports whether it was not already present.
func (s *KeySet) Add(key string) bool {
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = struct{}{}
	s.keys = append(s.keys, key)
	return true
}

// Has reports whether key is in the set.
func (s *KeySet) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Len returns the number of keys.
func (s *KeySet) Len() int {
	return len(s.keys)
}

// Keys returns the keys in the order they were first added.
func (s *KeySet) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Reset empties the set.
func (s *KeySet) Reset() {
	s.keys = nil
	s.index = make(map[string]struct{})
}
