package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/ashureev/chatline/internal/domain"
	"github.com/ashureev/chatline/internal/router"
	"github.com/samber/lo"
)

// Client is the part of the chat client the console drives.
type Client interface {
	Login(ctx context.Context, name string) (*domain.Session, error)
	Logout(ctx context.Context) error
	Session() *domain.Session
	OpenThread(peer string) (domain.Thread, error)
	CloseThread(id string) error
	Threads() []domain.Thread
	Messages(threadID string) ([]domain.Message, error)
	Contacts() []domain.Contact
	Send(ctx context.Context, threadID, body string) (domain.Message, error)
}

// Console executes commands against a Client and prints results.
// Plain text goes to the current thread, which is the last one opened or
// addressed.
type Console struct {
	client Client
	logger *slog.Logger

	outMu sync.Mutex
	out   io.Writer

	mu      sync.Mutex
	current string
}

// New creates a console writing to out.
func New(client Client, out io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{client: client, out: out, logger: logger}
}

// Printf writes one line. Safe to call from the event printer goroutine.
func (c *Console) Printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprintf(c.out, format+"\n", args...)
}

// Current returns the id of the current thread, if any.
func (c *Console) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Console) setCurrent(id string) {
	c.mu.Lock()
	c.current = id
	c.mu.Unlock()
}

// Focus makes id the current thread unless one is already selected.
func (c *Console) Focus(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == "" {
		c.current = id
	}
}

// Forget clears the current thread if it is id.
func (c *Console) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == id {
		c.current = ""
	}
}

// Run reads lines from in until EOF, /quit or ctx cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		case line := <-lines:
			err := c.Execute(ctx, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				c.Printf("! %v", err)
			}
		}
	}
}

// Execute runs a single input line.
func (c *Console) Execute(ctx context.Context, line string) error {
	cmd, err := Parse(line)
	if err != nil {
		return err
	}

	switch cmd.Name {
	case "":
		return nil
	case "say":
		id := c.Current()
		if id == "" {
			return fmt.Errorf("no current thread, use /open PEER first")
		}
		return c.send(ctx, id, cmd.Text)
	case "msg":
		t, err := c.resolve(cmd.Args[0])
		if err != nil {
			return err
		}
		c.setCurrent(t.ID)
		return c.send(ctx, t.ID, cmd.Text)
	case "login":
		s, err := c.client.Login(ctx, cmd.Args[0])
		if err != nil {
			return err
		}
		c.Printf("* logged in as %s", s.DisplayName)
	case "logout":
		if err := c.client.Logout(ctx); err != nil {
			return err
		}
		c.Printf("* logged out")
	case "whoami":
		if s := c.client.Session(); s != nil {
			c.Printf("* %s (since %s)", s.DisplayName, s.LoggedInAt.Format("15:04:05"))
		} else {
			c.Printf("* not logged in")
		}
	case "open":
		t, err := c.client.OpenThread(cmd.Args[0])
		if err != nil {
			return err
		}
		c.setCurrent(t.ID)
	case "close":
		t, err := c.resolveOrCurrent(cmd.Args)
		if err != nil {
			return err
		}
		if err := c.client.CloseThread(t.ID); err != nil {
			return err
		}
		c.Forget(t.ID)
	case "threads":
		c.printThreads()
	case "contacts":
		contacts := c.client.Contacts()
		if len(contacts) == 0 {
			c.Printf("* nobody online")
		}
		for _, ct := range contacts {
			c.Printf("  %s (%s)", ct.Name, ct.State)
		}
	case "history":
		t, err := c.resolveOrCurrent(cmd.Args)
		if err != nil {
			return err
		}
		msgs, err := c.client.Messages(t.ID)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			c.Printf("  %s", FormatMessage(m))
		}
	case "help":
		c.printHelp()
	case "quit":
		return ErrQuit
	}
	return nil
}

func (c *Console) send(ctx context.Context, threadID, body string) error {
	if _, err := c.client.Send(ctx, threadID, body); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// resolve finds a thread by id, 1-based position in /threads, or peer name.
func (c *Console) resolve(ref string) (domain.Thread, error) {
	threads := c.client.Threads()
	if t, ok := lo.Find(threads, func(t domain.Thread) bool { return t.ID == ref }); ok {
		return t, nil
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(threads) {
		return threads[n-1], nil
	}
	if t, ok := lo.Find(threads, func(t domain.Thread) bool { return strings.EqualFold(t.Peer, ref) }); ok {
		return t, nil
	}
	return domain.Thread{}, fmt.Errorf("%w: %s", router.ErrThreadNotFound, ref)
}

func (c *Console) resolveOrCurrent(args []string) (domain.Thread, error) {
	if len(args) > 0 {
		return c.resolve(args[0])
	}
	id := c.Current()
	if id == "" {
		return domain.Thread{}, fmt.Errorf("no current thread")
	}
	return c.resolve(id)
}

func (c *Console) printThreads() {
	threads := c.client.Threads()
	if len(threads) == 0 {
		c.Printf("* no open threads")
		return
	}
	current := c.Current()
	for i, t := range threads {
		marker := " "
		if t.ID == current {
			marker = ">"
		}
		c.Printf("%s %d. %s  %s", marker, i+1, t.Peer, t.ID)
	}
}

func (c *Console) printHelp() {
	for _, name := range commandOrder {
		sp := commands[name]
		c.Printf("  %-20s %s", sp.usage, sp.help)
	}
	c.Printf("  %-20s %s", "TEXT", "send TEXT to the current thread")
}
