package types

import "time"

// Sighting is one printed match result, as recorded by the sighting store.
type Sighting struct {
	SessionID  string
	FrameIndex int
	Label      string // empty when nothing matched
	Score      float64
	Matched    bool
	SeenAt     time.Time
}

// Session describes one run of the live matcher.
type Session struct {
	ID         string
	Source     string
	SamplesDir string
	StartedAt  time.Time
	Frames     int
}

// LabelCount is how often a label won within a session.
type LabelCount struct {
	Label     string
	Hits      int
	BestScore float64
	FirstSeen int // frame index
	LastSeen  int
}
