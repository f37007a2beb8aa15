// Package queue provides the worklist that drives a build
package queue

import (
	"github.com/cherry/cherry/pkg/source"
)

// Scheduler is the part of the worklist handlers may use.
// PushBack schedules a source to be processed next; PushFront schedules it
// after everything currently pending.
type Scheduler interface {
	PushBack(src source.Source)
	PushFront(src source.Source)
}

// Worklist is a stack of pending sources. It is owned by a single build and
// is not safe for concurrent use.
type Worklist struct {
	items []source.Source
}

// NewWorklist creates an empty worklist
func NewWorklist() *Worklist {
	return &Worklist{}
}

// PushBack adds src on top of the stack
func (w *Worklist) PushBack(src source.Source) {
	w.items = append(w.items, src)
}

// PushFront adds src at the bottom of the stack
func (w *Worklist) PushFront(src source.Source) {
	w.items = append(w.items, nil)
	copy(w.items[1:], w.items)
	w.items[0] = src
}

// PopBack removes and returns the top of the stack
func (w *Worklist) PopBack() (source.Source, bool) {
	if len(w.items) == 0 {
		return nil, false
	}
	last := len(w.items) - 1
	src := w.items[last]
	w.items[last] = nil
	w.items = w.items[:last]
	return src, true
}

// Len returns the number of pending sources
func (w *Worklist) Len() int {
	return len(w.items)
}
