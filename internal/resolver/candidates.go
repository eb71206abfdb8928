package resolver

// CandidateSet is an ordered, deduplicated set of candidate identifiers.
// Insertion order is preserved across pages, so the 1-based position of an
// identifier is its rank in the union of all pages crawled so far. A
// capacity bounds accumulation; zero means unbounded.
type CandidateSet struct {
	order    []string
	position map[string]int // 1-based
	capacity int
}

// NewCandidateSet creates an empty candidate set holding at most capacity
// identifiers.
func NewCandidateSet(capacity int) *CandidateSet {
	return &CandidateSet{
		position: make(map[string]int),
		capacity: capacity,
	}
}

// Merge appends the identifiers not already present, in the order given, and
// returns how many were new. Appending stops silently once the capacity is
// reached.
func (s *CandidateSet) Merge(ids []string) int {
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.position[id]; ok {
			continue
		}
		if s.capacity > 0 && len(s.order) >= s.capacity {
			break
		}
		s.order = append(s.order, id)
		s.position[id] = len(s.order)
		added++
	}
	return added
}

// PositionOf returns the 1-based position of id, if present.
func (s *CandidateSet) PositionOf(id string) (int, bool) {
	pos, ok := s.position[id]
	return pos, ok
}

// Size is the number of unique identifiers observed.
func (s *CandidateSet) Size() int {
	return len(s.order)
}

// Full reports whether the capacity has been reached.
func (s *CandidateSet) Full() bool {
	return s.capacity > 0 && len(s.order) >= s.capacity
}
