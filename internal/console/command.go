// Package console implements the line-oriented front end of the client.
package console

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuit is returned by Execute when the user asked to leave.
	ErrQuit = errors.New("quit")
	// ErrUnknownCommand is returned for a slash command that does not exist.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned when a command is missing arguments.
	ErrUsage = errors.New("usage")
)

// Command is one parsed input line. Plain text parses to the "say" command.
type Command struct {
	Name string
	Args []string
	// Text is the raw remainder after the positional arguments.
	Text string
}

type commandSpec struct {
	args  int  // positional arguments before Text
	text  bool // remainder of the line is required free text
	usage string
	help  string
}

var commands = map[string]commandSpec{
	"login":    {args: 1, usage: "/login NAME", help: "set your display name"},
	"logout":   {usage: "/logout", help: "forget your display name"},
	"open":     {args: 1, usage: "/open PEER", help: "start a thread with PEER"},
	"close":    {usage: "/close [THREAD]", help: "close a thread (default: current)"},
	"msg":      {args: 1, text: true, usage: "/msg THREAD TEXT", help: "send TEXT to THREAD"},
	"threads":  {usage: "/threads", help: "list open threads"},
	"contacts": {usage: "/contacts", help: "list online contacts"},
	"history":  {usage: "/history [THREAD]", help: "show messages of a thread"},
	"whoami":   {usage: "/whoami", help: "show the session"},
	"help":     {usage: "/help", help: "show this help"},
	"quit":     {usage: "/quit", help: "leave"},
}

var commandOrder = []string{"login", "logout", "open", "close", "msg", "threads", "contacts", "history", "whoami", "help", "quit"}

// Parse splits a line into a Command. Blank lines return a zero Command.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return Command{Name: "say", Text: line}, nil
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	name = strings.ToLower(name)
	sp, ok := commands[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: /%s", ErrUnknownCommand, name)
	}

	cmd := Command{Name: name}
	rest = strings.TrimSpace(rest)
	for i := 0; i < sp.args; i++ {
		if rest == "" {
			return Command{}, fmt.Errorf("%w: %s", ErrUsage, sp.usage)
		}
		var arg string
		arg, rest, _ = strings.Cut(rest, " ")
		cmd.Args = append(cmd.Args, arg)
		rest = strings.TrimSpace(rest)
	}
	if sp.text && rest == "" {
		return Command{}, fmt.Errorf("%w: %s", ErrUsage, sp.usage)
	}
	if sp.args == 0 && rest != "" {
		cmd.Args = strings.Fields(rest)
	}
	cmd.Text = rest
	return cmd, nil
}
