package members

// mapRoster implements Roster using a map for O(1) lookups.
type mapRoster struct {
	ids map[string]struct{}
}

// newMapRoster creates an empty roster with room for capacity ids.
func newMapRoster(capacity int) *mapRoster {
	return &mapRoster{
		ids: make(map[string]struct{}, capacity),
	}
}

func (s *mapRoster) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *mapRoster) Size() int {
	return len(s.ids)
}

// Add inserts a member id.
func (s *mapRoster) Add(id string) {
	s.ids[id] = struct{}{}
}
