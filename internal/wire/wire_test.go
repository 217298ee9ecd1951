package wire

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeAddsTypeDiscriminator(t *testing.T) {
	data, err := Encode(&Chat{ID: "m1", Thread: "t1", From: "cenk", To: "rauf", Body: "hi"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to unmarshal frame: %v", err)
	}
	if got["type"] != "chat" {
		t.Errorf("Expected type=chat, got %q", got["type"])
	}
	if got["thread"] != "t1" || got["from"] != "cenk" || got["to"] != "rauf" {
		t.Errorf("Unexpected frame fields: %v", got)
	}
}

func TestEncodeLegacyChatOmitsThread(t *testing.T) {
	data, err := Encode(&Chat{ID: "m1", From: "cenk", To: "rauf", Body: "hi"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to unmarshal frame: %v", err)
	}
	if _, ok := got["thread"]; ok {
		t.Errorf("Expected no thread field, got %v", got["thread"])
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"login without name", &Login{}},
		{"chat without id", &Chat{From: "a", To: "b"}},
		{"presence with bad status", &Presence{Name: "a", Status: "away"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.msg)
			if !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("Expected ErrInvalidMessage, got %v", err)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"presence","name":"rauf","status":"offline"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	p, ok := msg.(*Presence)
	if !ok {
		t.Fatalf("Expected *Presence, got %T", msg)
	}
	if p.Name != "rauf" || p.Status != "offline" {
		t.Errorf("Unexpected presence: %+v", p)
	}

	msg, err = Decode([]byte(`{"type":"chat","id":"m1","from":"rauf","to":"cenk","body":"selam"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	c, ok := msg.(*Chat)
	if !ok {
		t.Fatalf("Expected *Chat, got %T", msg)
	}
	if c.Thread != "" || c.Body != "selam" {
		t.Errorf("Unexpected chat: %+v", c)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"not json", `hello`, ErrMalformed},
		{"array", `[1,2]`, ErrMalformed},
		{"missing type", `{"name":"x"}`, ErrUnknownType},
		{"unknown type", `{"type":"typing","from":"x"}`, ErrUnknownType},
		{"wrong field type", `{"type":"chat","id":7}`, ErrMalformed},
		{"chat missing from", `{"type":"chat","id":"m1","to":"b"}`, ErrInvalidMessage},
		{"presence bad status", `{"type":"presence","name":"x","status":"busy"}`, ErrInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
