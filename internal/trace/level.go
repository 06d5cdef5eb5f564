package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // failed documents only
	LevelPhase        // command and document boundaries
	LevelDetail       // every section with its byte range
	LevelDebug        // sections plus individual findings
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a level name, in any case, to a Level.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(s)
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil //nolint:gosec // bounded by the table
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether ordinary events of scope pass at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopeDocument
	case LevelDetail:
		return scope <= ScopeSection
	case LevelDebug:
		return true
	}
	return false
}

// allows also lets heartbeats through, and failed document spans at every
// level above off.
func (l Level) allows(ev *Event) bool {
	switch {
	case l == LevelOff:
		return false
	case ev.Kind == KindHeartbeat:
		return true
	case ev.Failed && ev.Scope <= ScopeDocument:
		return true
	}
	return l.ShouldEmit(ev.Scope)
}
