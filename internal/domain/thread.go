package domain

import "time"

// Thread is a single logical conversation with one counterpart.
type Thread struct {
	ID       string    `json:"id"`
	Peer     string    `json:"peer"`
	OpenedAt time.Time `json:"opened_at"`
}

// Message is one chat line within a thread. ID is unique within its thread.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Body     string    `json:"body"`
	Outbound bool      `json:"outbound"`
	At       time.Time `json:"at"`
}
