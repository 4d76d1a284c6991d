package scan

import (
	"time"

	"github.com/rs/zerolog"
)

// Stats summarizes one tree walk.
type Stats struct {
	Folders    int           // folders kept in the tree
	Files      int           // recordings kept in the tree
	Skipped    int           // hidden entries, pruned folders and other files
	Unreadable int           // directories that could not be listed
	Elapsed    time.Duration // wall time of the walk
}

// MarshalZerologObject lets a Stats value be logged with Object("walk", stats).
func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("folders", s.Folders).
		Int("files", s.Files).
		Int("skipped", s.Skipped).
		Int("unreadable", s.Unreadable).
		Dur("elapsed", s.Elapsed)
}
