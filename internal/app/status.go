package app

import (
	"fmt"
	"time"
)

// Status is the transient message line shown under the player.
type Status struct {
	Text    string
	IsError bool
	at      time.Time
}

func (c *Controller) setStatus(format string, args ...any) {
	c.status = Status{Text: fmt.Sprintf(format, args...), at: c.now()}
}

func (c *Controller) setError(format string, args ...any) {
	c.status = Status{Text: fmt.Sprintf(format, args...), IsError: true, at: c.now()}
}

// Status returns the current message, or a zero Status once it has been
// shown for longer than the configured lifetime.
func (c *Controller) Status() Status {
	if c.status.Text == "" || c.now().Sub(c.status.at) > c.cfg.Interface.StatusLifetime {
		return Status{}
	}
	return c.status
}

// ClearStatus drops the current message.
func (c *Controller) ClearStatus() {
	c.status = Status{}
}

// Notify shows an informational message.
func (c *Controller) Notify(format string, args ...any) {
	c.setStatus(format, args...)
}

// NotifyError shows an error message.
func (c *Controller) NotifyError(format string, args ...any) {
	c.setError(format, args...)
}
