package types

// SnapshotMap maps a faculty member's name to their free-text research description.
type SnapshotMap = map[string]string

// RunStats summarizes one resolution run.
type RunStats struct {
	RunID     string `json:"run_id"`
	Pages     int    `json:"pages"`
	Panels    int    `json:"panels"`
	Names     int    `json:"names"`
	CacheHits int    `json:"cache_hits"`
	Lookups   int    `json:"lookups"`
	Valid     int    `json:"valid"`
	Invalid   int    `json:"invalid"`
	Absent    int    `json:"absent"`
	Faults    int    `json:"faults"` // lookups recovered as Absent
}

// Add accumulates other into s. RunID is left untouched.
func (s *RunStats) Add(other RunStats) {
	s.Pages += other.Pages
	s.Panels += other.Panels
	s.Names += other.Names
	s.CacheHits += other.CacheHits
	s.Lookups += other.Lookups
	s.Valid += other.Valid
	s.Invalid += other.Invalid
	s.Absent += other.Absent
	s.Faults += other.Faults
}

// MergeResult summarizes one consolidation pass.
type MergeResult struct {
	Processed int `json:"processed"`
	Added     int `json:"added"`
	Skipped   int `json:"skipped"`
}

// SnapshotResult summarizes one snapshot diff-write.
type SnapshotResult struct {
	Changed  bool `json:"changed"`
	Entries  int  `json:"entries"`
	Added    int  `json:"added"`
	Removed  int  `json:"removed"`
	Modified int  `json:"modified"`
}
