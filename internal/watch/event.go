package watch

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// Kind classifies a change event.
type Kind string

// Change kinds.
const (
	KindCreated Kind = "created"
	KindChanged Kind = "changed"
	KindDeleted Kind = "deleted"
	KindRenamed Kind = "renamed"
)

// Event is a change to a watched file. Path is slash-separated and
// relative to the watch root.
type Event struct {
	Path string
	Kind Kind
}

// Source produces change events until ctx is done. The returned channel
// is closed when the source stops.
type Source interface {
	Events(ctx context.Context) <-chan Event
}

// kindOf maps an fsnotify operation to a Kind. Chmod-only and empty
// operations report false; the watcher decides on those by mtime.
func kindOf(op fsnotify.Op) (Kind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return KindCreated, true
	case op.Has(fsnotify.Write):
		return KindChanged, true
	case op.Has(fsnotify.Remove):
		return KindDeleted, true
	case op.Has(fsnotify.Rename):
		return KindRenamed, true
	default:
		return "", false
	}
}
