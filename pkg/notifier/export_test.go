package notifier

// SetSenders replaces the desktop calls so tests never show notifications.
func (n *BuildNotifier) SetSenders(notify func(title, message, icon string) error, beep func(freq float64, duration int) error) {
	n.notify = notify
	n.beep = beep
}

var FormatDuration = formatDuration
