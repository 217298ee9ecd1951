package console

import (
	"fmt"

	"github.com/ashureev/chatline/internal/domain"
	"github.com/ashureev/chatline/internal/events"
)

// FormatMessage renders a chat line.
func FormatMessage(m domain.Message) string {
	return fmt.Sprintf("[%s] %s: %s", m.At.Format("15:04:05"), m.From, m.Body)
}

// FormatEvent renders a bus event for the terminal. It returns "" for
// events that are not worth a line.
func FormatEvent(evt events.Event) string {
	switch e := evt.(type) {
	case events.Connecting:
		if e.Attempt > 1 {
			return fmt.Sprintf("* connecting (attempt %d)", e.Attempt)
		}
		return "* connecting"
	case events.Connected:
		return "* connected"
	case events.Disconnected:
		return "* disconnected"
	case events.ReconnectScheduled:
		return fmt.Sprintf("* reconnecting in %s", e.Delay)
	case events.GaveUp:
		return fmt.Sprintf("! gave up after %d attempts: %v", e.Attempts, e.Err)
	case events.Error:
		return fmt.Sprintf("! %v", e)
	case events.PresenceChanged:
		if e.Removed {
			return fmt.Sprintf("* %s went offline", e.Contact.Name)
		}
		return fmt.Sprintf("* %s is online", e.Contact.Name)
	case events.ThreadOpened:
		return fmt.Sprintf("* thread with %s opened (%s)", e.Thread.Peer, e.Thread.ID)
	case events.ThreadClosed:
		return fmt.Sprintf("* thread %s closed", e.ThreadID)
	case events.MessageReceived:
		return FormatMessage(e.Message)
	default:
		return ""
	}
}

// PrintEvents writes events from ch until it is closed. Opened threads
// become current when none is selected.
func (c *Console) PrintEvents(ch <-chan events.Event) {
	for evt := range ch {
		switch e := evt.(type) {
		case events.ThreadOpened:
			c.Focus(e.Thread.ID)
		case events.ThreadClosed:
			c.Forget(e.ThreadID)
		}
		if line := FormatEvent(evt); line != "" {
			c.Printf("%s", line)
		}
	}
}
