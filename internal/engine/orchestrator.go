package engine

import (
	"context"
	"fmt"

	"github.com/cherry/cherry/internal/registry"
	pcontext "github.com/cherry/cherry/pkg/context"
	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/queue"
	"github.com/cherry/cherry/pkg/source"
)

// Run pushes roots onto a fresh worklist so that the first root is processed
// first, dispatches every popped source to the handlers registered for its
// type until the worklist is empty, then finalizes every handler once in
// registration order. The first error aborts the build.
func Run(ctx context.Context, log logger.Logger, table *registry.Table, roots ...source.Source) (*Report, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	ctx = pcontext.EnrichContext(ctx)
	log = logger.WithContext(ctx, log)

	report := &Report{BuildID: pcontext.GetBuildID(ctx)}

	wl := queue.NewWorklist()
	for i := len(roots) - 1; i >= 0; i-- {
		wl.PushBack(roots[i])
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("build cancelled: %w", err)
		}

		src, ok := wl.PopBack()
		if !ok {
			break
		}

		hs := table.HandlersFor(src.Type())
		if len(hs) == 0 {
			log.Debug("No handler for source",
				logger.WithField("origin", src.Origin()),
				logger.WithField("type", src.Type()))
			continue
		}
		if origin := src.Origin(); origin != "" {
			report.Origins = append(report.Origins, origin)
		}

		for _, h := range hs {
			if err := h.Handle(ctx, src, wl); err != nil {
				return report, fmt.Errorf("%s: %w", h.Name(), err)
			}
		}
	}

	for _, h := range table.All() {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("build cancelled: %w", err)
		}
		if err := h.Finalize(ctx); err != nil {
			return report, fmt.Errorf("%s: %w", h.Name(), err)
		}
	}

	report.Duration = pcontext.GetDuration(ctx)
	return report, nil
}
