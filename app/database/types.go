package database

import (
	"time"
)

// Snapshot is one completed extraction run, stored as the serialized program
// payload for a date window. Key is the window's canonical string form.
type Snapshot struct {
	Key         string
	WindowFrom  time.Time
	WindowTo    time.Time // zero for open-ended windows
	Payload     []byte
	GeneratedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Fresh reports whether the snapshot is younger than ttl.
func (s *Snapshot) Fresh(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.GeneratedAt) < ttl
}
