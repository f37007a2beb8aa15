// Package registry builds the table that routes sources to their handlers
package registry

import (
	"fmt"

	"github.com/cherry/cherry/pkg/handlers"
	"github.com/cherry/cherry/pkg/types"
)

// Table maps each file type to the handlers registered for it. It is built
// once from a fixed handler list and never changes afterwards.
type Table struct {
	handlers []handlers.Handler
	byType   map[types.FileType][]handlers.Handler
}

// New creates a table. Handlers keep their registration order both in All
// and within each type.
func New(hs ...handlers.Handler) (*Table, error) {
	t := &Table{
		handlers: make([]handlers.Handler, 0, len(hs)),
		byType:   make(map[types.FileType][]handlers.Handler),
	}

	names := make(map[string]bool, len(hs))
	for _, h := range hs {
		if h == nil {
			return nil, fmt.Errorf("nil handler in registration list")
		}
		if names[h.Name()] {
			return nil, fmt.Errorf("handler %q registered twice", h.Name())
		}
		names[h.Name()] = true

		t.handlers = append(t.handlers, h)
		for _, ft := range h.FileTypes() {
			t.byType[ft] = append(t.byType[ft], h)
		}
	}
	return t, nil
}

// HandlersFor returns the handlers registered for a type, in registration order
func (t *Table) HandlersFor(ft types.FileType) []handlers.Handler {
	return append([]handlers.Handler(nil), t.byType[ft]...)
}

// All returns every handler in registration order
func (t *Table) All() []handlers.Handler {
	return append([]handlers.Handler(nil), t.handlers...)
}

// Types returns how many file types have at least one handler
func (t *Table) Types() int {
	return len(t.byType)
}
