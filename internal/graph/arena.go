package graph

// arena concentrates every owned string/byte attribute copied into the
// graph behind a single lifetime. In a systems language this would be a
// bump allocator; in Go the equivalent is a slice of retained strings whose
// release is a single assignment (see Graph.Teardown) that lets the
// garbage collector reclaim everything at once rather than field by field.
//
// Re-ingestion of a file is "drop and rebuild the affected records": the
// arena tolerates retained-but-unreachable bytes from overwritten records
// until the next full Teardown, exactly as spec.md §9 describes for the
// systems-language original.
type arena struct {
	retained []string
}

func newArena() *arena {
	return &arena{}
}

// intern copies s into the arena's lifetime and returns the stored copy.
// Copying (via a fresh byte slice round-trip) ensures the graph never holds
// a reference into a caller-owned buffer.
func (a *arena) intern(s string) string {
	if s == "" {
		return ""
	}
	b := make([]byte, len(s))
	copy(b, s)
	cp := string(b)
	a.retained = append(a.retained, cp)
	return cp
}
