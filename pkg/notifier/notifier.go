// Package notifier provides build notification functionality
package notifier

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/cherry/cherry/pkg/logger"
	"github.com/cherry/cherry/pkg/types"
)

// BuildNotifier sends desktop notifications for build outcomes
type BuildNotifier struct {
	enabled bool
	sound   bool
	logger  logger.Logger

	notify func(title, message, icon string) error
	beep   func(freq float64, duration int) error
}

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Sound beeps on failed builds.
	Sound bool
}

// New creates a new build notifier
func New(config Config, log logger.Logger) *BuildNotifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &BuildNotifier{
		enabled: config.Enabled,
		sound:   config.Sound,
		logger:  log,
		notify:  beeep.Notify,
		beep:    beeep.Beep,
	}
}

// Enabled reports whether notifications are sent
func (n *BuildNotifier) Enabled() bool {
	return n != nil && n.enabled
}

// NotifyBuildSuccess notifies that a manifest was built
func (n *BuildNotifier) NotifyBuildSuccess(manifest string, mode types.BuildMode, duration time.Duration) {
	if !n.Enabled() {
		return
	}

	title := "🍒 Build Succeeded"
	message := fmt.Sprintf("%s (%s) built in %s", filepath.Base(manifest), mode, formatDuration(duration))

	n.send(title, message, false)
}

// NotifyBuildFailure notifies that a manifest failed to build
func (n *BuildNotifier) NotifyBuildFailure(manifest string, err error) {
	if !n.Enabled() {
		return
	}

	title := "❌ Build Failed"
	message := fmt.Sprintf("%s: %v", filepath.Base(manifest), err)

	n.send(title, message, true)
}

func (n *BuildNotifier) send(title, message string, alert bool) {
	if err := n.notify(title, message, ""); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
		n.logger.Info(fmt.Sprintf("%s: %s", title, message))
	}

	if alert && n.sound {
		if err := n.beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
