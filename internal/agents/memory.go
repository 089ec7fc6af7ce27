// Agent memory: a short rolling log of notable experiences.
package agents

// MaxMemories caps the memory log; the oldest entry is dropped first.
const MaxMemories = 10

// Remember appends a note, dropping the oldest when full.
func (a *Agent) Remember(note string) {
	a.Memory = append(a.Memory, note)
	if len(a.Memory) > MaxMemories {
		a.Memory = append([]string(nil), a.Memory[len(a.Memory)-MaxMemories:]...)
	}
}

// RecentMemories returns up to count entries, newest first.
func (a *Agent) RecentMemories(count int) []string {
	if count > len(a.Memory) {
		count = len(a.Memory)
	}
	out := make([]string, 0, count)
	for i := len(a.Memory) - 1; i >= 0 && len(out) < count; i-- {
		out = append(out, a.Memory[i])
	}
	return out
}
