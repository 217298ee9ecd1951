package client

import (
	"context"
	"fmt"

	"github.com/ashureev/chatline/internal/domain"
	"github.com/ashureev/chatline/internal/events"
	"github.com/ashureev/chatline/internal/wire"
)

// handleFrame runs on the transport read goroutine, one frame at a time.
func (c *Client) handleFrame(_ context.Context, frame []byte) {
	m, err := wire.Decode(frame)
	if err != nil {
		c.logger.Warn("Dropping inbound frame", "error", err, "bytes", len(frame))
		c.bus.Publish(events.Error{Op: "decode", Err: err})
		return
	}

	switch v := m.(type) {
	case *wire.Chat:
		c.handleChat(v)
	case *wire.Presence:
		c.handlePresence(v)
	default:
		err := fmt.Errorf("%w: inbound %s", wire.ErrUnknownType, m.MessageType())
		c.logger.Warn("Unhandled inbound frame", "type", m.MessageType())
		c.bus.Publish(events.Error{Op: "dispatch", Err: err})
	}
}

func (c *Client) handleChat(v *wire.Chat) {
	self := c.self()
	res := c.router.Route(domain.Message{
		ID:       v.ID,
		ThreadID: v.Thread,
		From:     v.From,
		To:       v.To,
		Body:     v.Body,
		Outbound: self != "" && v.From == self,
		At:       c.now(),
	}, self)

	if res.Opened {
		c.bus.Publish(events.ThreadOpened{Thread: res.Thread})
	}
	if res.Duplicate {
		c.bus.Publish(events.DuplicateDropped{ThreadID: res.Message.ThreadID, MessageID: res.Message.ID})
		return
	}
	c.bus.Publish(events.MessageReceived{Message: res.Message})
}

func (c *Client) handlePresence(v *wire.Presence) {
	contact, removed, err := c.roster.Apply(v.Name, domain.PresenceState(v.Status))
	if err != nil {
		c.bus.Publish(events.Error{Op: "presence", Err: fmt.Errorf("%w: %v", wire.ErrInvalidMessage, err)})
		return
	}
	if contact.State == domain.PresenceOffline && !removed {
		c.logger.Debug("Ignoring offline for unknown contact", "name", contact.Name)
		return
	}
	c.bus.Publish(events.PresenceChanged{Contact: contact, Removed: removed})
}
