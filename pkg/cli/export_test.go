package cli

import "github.com/cherry/cherry/internal/engine"

// SetEngineOptions sets the options of every engine the CLI creates
func (c *CLI) SetEngineOptions(opts ...engine.Option) {
	c.engineOptions = opts
}
