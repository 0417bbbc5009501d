package attribute

// ValueSet holds the values already taken for a unique attribute.
// It is not safe for concurrent use.
type ValueSet struct {
	values map[string]struct{}
}

// NewValueSet creates a set seeded with values. Empty strings are ignored.
func NewValueSet(values ...string) *ValueSet {
	s := &ValueSet{values: make(map[string]struct{}, len(values))}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add records v as taken.
func (s *ValueSet) Add(v string) {
	if v == "" {
		return
	}
	s.values[v] = struct{}{}
}

// Contains reports whether v is taken.
func (s *ValueSet) Contains(v string) bool {
	if s == nil {
		return false
	}
	_, ok := s.values[v]
	return ok
}

// Len returns the number of taken values.
func (s *ValueSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}
