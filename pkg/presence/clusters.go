package presence

// clusterSet is the identity-keyed set of registered cluster handles.
// Guarded by the Core's mutex; notification of adds and removals is the
// Core's job so listener callbacks run outside the lock.
type clusterSet struct {
	entries []Cluster
}

func (s *clusterSet) add(c Cluster) bool {
	if s.indexOf(c) >= 0 {
		return false
	}
	s.entries = append(s.entries, c)
	return true
}

func (s *clusterSet) remove(c Cluster) bool {
	i := s.indexOf(c)
	if i < 0 {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

func (s *clusterSet) indexOf(c Cluster) int {
	for i, entry := range s.entries {
		if entry == c {
			return i
		}
	}
	return -1
}

// all returns a copy of the registered clusters, stable for the duration of
// a visit even if the set changes concurrently.
func (s *clusterSet) all() []Cluster {
	out := make([]Cluster, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *clusterSet) len() int {
	return len(s.entries)
}
