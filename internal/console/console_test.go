package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/chatline/internal/domain"
	"github.com/ashureev/chatline/internal/events"
	"github.com/ashureev/chatline/internal/router"
)

type sent struct {
	threadID string
	body     string
}

type fakeClient struct {
	session  *domain.Session
	threads  []domain.Thread
	messages map[string][]domain.Message
	contacts []domain.Contact
	sent     []sent
	sendErr  error
	nextID   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{messages: make(map[string][]domain.Message)}
}

func (f *fakeClient) Login(_ context.Context, name string) (*domain.Session, error) {
	s := domain.NewSession(name, time.Now())
	if s == nil {
		return nil, errors.New("display name is empty")
	}
	f.session = s
	return s, nil
}

func (f *fakeClient) Logout(context.Context) error {
	f.session = nil
	return nil
}

func (f *fakeClient) Session() *domain.Session { return f.session }

func (f *fakeClient) OpenThread(peer string) (domain.Thread, error) {
	f.nextID++
	t := domain.Thread{ID: fmt.Sprintf("id-%d", f.nextID), Peer: peer}
	f.threads = append(f.threads, t)
	return t, nil
}

func (f *fakeClient) CloseThread(id string) error {
	for i, t := range f.threads {
		if t.ID == id {
			f.threads = append(f.threads[:i], f.threads[i+1:]...)
			return nil
		}
	}
	return router.ErrThreadNotFound
}

func (f *fakeClient) Threads() []domain.Thread { return f.threads }

func (f *fakeClient) Messages(id string) ([]domain.Message, error) {
	return f.messages[id], nil
}

func (f *fakeClient) Contacts() []domain.Contact { return f.contacts }

func (f *fakeClient) Send(_ context.Context, threadID, body string) (domain.Message, error) {
	if f.sendErr != nil {
		return domain.Message{}, f.sendErr
	}
	f.sent = append(f.sent, sent{threadID, body})
	return domain.Message{ID: "m", ThreadID: threadID, Body: body}, nil
}

func newTestConsole() (*Console, *fakeClient, *bytes.Buffer) {
	fc := newFakeClient()
	out := &bytes.Buffer{}
	return New(fc, out, nil), fc, out
}

func TestOpenThenPlainTextSendsToCurrent(t *testing.T) {
	c, fc, _ := newTestConsole()
	ctx := context.Background()

	if err := c.Execute(ctx, "hello"); err == nil {
		t.Error("Expected error without a current thread")
	}
	for _, line := range []string{"/login cenk", "/open rauf", "hello rauf"} {
		if err := c.Execute(ctx, line); err != nil {
			t.Fatalf("Execute(%q) failed: %v", line, err)
		}
	}

	if len(fc.sent) != 1 || fc.sent[0].threadID != "id-1" || fc.sent[0].body != "hello rauf" {
		t.Errorf("Unexpected sends %+v", fc.sent)
	}
}

func TestMsgResolvesThreadReferences(t *testing.T) {
	c, fc, _ := newTestConsole()
	ctx := context.Background()
	_ = c.Execute(ctx, "/open rauf")
	_ = c.Execute(ctx, "/open ayse")

	for _, line := range []string{"/msg id-1 by id", "/msg 2 by index", "/msg RAUF by peer"} {
		if err := c.Execute(ctx, line); err != nil {
			t.Fatalf("Execute(%q) failed: %v", line, err)
		}
	}
	want := []sent{{"id-1", "by id"}, {"id-2", "by index"}, {"id-1", "by peer"}}
	if len(fc.sent) != len(want) {
		t.Fatalf("Expected %d sends, got %+v", len(want), fc.sent)
	}
	for i, w := range want {
		if fc.sent[i] != w {
			t.Errorf("Send %d: expected %+v, got %+v", i, w, fc.sent[i])
		}
	}
	if c.Current() != "id-1" {
		t.Errorf("Expected /msg to move focus, current is %q", c.Current())
	}

	if err := c.Execute(ctx, "/msg 9 nope"); !errors.Is(err, router.ErrThreadNotFound) {
		t.Errorf("Expected ErrThreadNotFound, got %v", err)
	}
}

func TestCloseCurrentThread(t *testing.T) {
	c, fc, _ := newTestConsole()
	ctx := context.Background()
	_ = c.Execute(ctx, "/open rauf")

	if err := c.Execute(ctx, "/close"); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(fc.threads) != 0 || c.Current() != "" {
		t.Errorf("Expected no threads and no focus, got %v %q", fc.threads, c.Current())
	}
	if err := c.Execute(ctx, "/close"); err == nil {
		t.Error("Expected error closing without a current thread")
	}
}

func TestSendErrorIsWrapped(t *testing.T) {
	c, fc, _ := newTestConsole()
	boom := errors.New("not connected")
	fc.sendErr = boom
	_ = c.Execute(context.Background(), "/open rauf")

	if err := c.Execute(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped send error, got %v", err)
	}
}

func TestListingCommands(t *testing.T) {
	c, fc, out := newTestConsole()
	ctx := context.Background()
	fc.contacts = []domain.Contact{{Name: "rauf", State: domain.PresenceOnline}}
	_ = c.Execute(ctx, "/open rauf")
	fc.messages["id-1"] = []domain.Message{{From: "rauf", Body: "hey"}}

	for _, line := range []string{"/threads", "/contacts", "/history", "/whoami", "/help"} {
		if err := c.Execute(ctx, line); err != nil {
			t.Fatalf("Execute(%q) failed: %v", line, err)
		}
	}

	text := out.String()
	for _, want := range []string{"> 1. rauf  id-1", "rauf (online)", "rauf: hey", "not logged in", "/msg THREAD TEXT"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestRunStopsAtQuit(t *testing.T) {
	c, fc, out := newTestConsole()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := strings.NewReader("/login cenk\n/bogus\n/quit\n/logout\n")
	if err := c.Run(ctx, in); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if fc.session == nil {
		t.Error("Expected /logout after /quit to be ignored")
	}
	if !strings.Contains(out.String(), "unknown command") {
		t.Errorf("Expected unknown command error line, got:\n%s", out.String())
	}
}

func TestRunStopsAtEOF(t *testing.T) {
	c, _, _ := newTestConsole()
	if err := c.Run(context.Background(), strings.NewReader("/help\n")); err != nil {
		t.Errorf("Run failed: %v", err)
	}
}

func TestPrintEventsFocusesFirstThread(t *testing.T) {
	c, _, out := newTestConsole()
	ch := make(chan events.Event, 4)
	ch <- events.ThreadOpened{Thread: domain.Thread{ID: "t1", Peer: "rauf"}}
	ch <- events.MessageReceived{Message: domain.Message{From: "rauf", Body: "hi"}}
	ch <- events.DuplicateDropped{ThreadID: "t1", MessageID: "m"}
	ch <- events.ThreadClosed{ThreadID: "t1"}
	close(ch)

	c.PrintEvents(ch)

	if c.Current() != "" {
		t.Errorf("Expected focus cleared after close, got %q", c.Current())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("Expected 3 lines (duplicate is silent), got %q", lines)
	}
}
