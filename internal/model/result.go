package model

// MatchResult is the nearest amenity found for one house.
type MatchResult struct {
	House      string  `json:"house"`
	Amenity    string  `json:"amenity"`
	DistanceKM float64 `json:"distance_km"`
}

// ResultSet maps house identifiers to their MatchResult, preserving insertion order.
//
// Put on an existing key replaces the stored value but keeps the key's
// first-insertion position, so duplicate identifiers collapse to the last write.
// A ResultSet is not safe for concurrent mutation.
type ResultSet struct {
	index   map[string]int
	results []MatchResult
}

// NewResultSet returns an empty ResultSet with room for n results.
func NewResultSet(n int) *ResultSet {
	if n < 0 {
		n = 0
	}
	return &ResultSet{
		index:   make(map[string]int, n),
		results: make([]MatchResult, 0, n),
	}
}

// Put inserts or replaces the result for r.House.
func (s *ResultSet) Put(r MatchResult) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[r.House]; ok {
		s.results[i] = r
		return
	}
	s.index[r.House] = len(s.results)
	s.results = append(s.results, r)
}

// Get returns the result for a house identifier.
func (s *ResultSet) Get(house string) (MatchResult, bool) {
	if s == nil {
		return MatchResult{}, false
	}
	i, ok := s.index[house]
	if !ok {
		return MatchResult{}, false
	}
	return s.results[i], true
}

// Len returns the number of distinct houses in the set.
func (s *ResultSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.results)
}

// Results returns a copy of the results in insertion order.
func (s *ResultSet) Results() []MatchResult {
	if s == nil {
		return nil
	}
	out := make([]MatchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Snapshot returns an independent copy of the set.
func (s *ResultSet) Snapshot() *ResultSet {
	cp := NewResultSet(s.Len())
	if s == nil {
		return cp
	}
	for _, r := range s.results {
		cp.Put(r)
	}
	return cp
}
