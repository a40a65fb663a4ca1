// Package console is the line-oriented front end: it prints every event as
// "<target>\t<display>" and reads add/remove/list/quit commands.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/doridoridoriand/fastping/internal/event"
	"github.com/doridoridoriand/fastping/internal/log"
)

// Controller is the command side of the supervisor.
type Controller interface {
	AddTarget(name string) (bool, error)
	RemoveTarget(name string) (bool, error)
	Targets() []string
}

// Console serializes its writes so event lines and command replies never
// interleave mid-line.
type Console struct {
	ctrl   Controller
	logger *log.Logger

	mu  sync.Mutex
	out io.Writer
}

func New(out io.Writer, ctrl Controller, logger *log.Logger) *Console {
	if logger == nil {
		logger = log.Nop()
	}
	return &Console{out: out, ctrl: ctrl, logger: logger}
}

// Print writes events from sub until it closes or ctx ends.
func (c *Console) Print(ctx context.Context, sub *event.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			c.printf("%s\t%s\n", e.Target, e.Display())
		}
	}
}

// Commands reads commands from in until quit, end of input or ctx ends. It
// reports whether the user asked to quit; end of input alone does not.
func (c *Console) Commands(ctx context.Context, in io.Reader) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

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
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case line, ok := <-lines:
			if !ok {
				return false, <-readErr
			}
			if quit := c.Execute(line); quit {
				return true, nil
			}
		}
	}
}

// Execute runs one command line and reports whether it asked to quit.
func (c *Console) Execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch cmd {
	case "add":
		if arg == "" {
			c.printf("usage: add <target>\n")
			return false
		}
		added, err := c.ctrl.AddTarget(arg)
		c.report("added", "already present", arg, added, err)
	case "remove", "rm":
		if arg == "" {
			c.printf("usage: remove <target>\n")
			return false
		}
		removed, err := c.ctrl.RemoveTarget(arg)
		c.report("removed", "not present", arg, removed, err)
	case "list", "ls":
		for _, t := range c.ctrl.Targets() {
			c.printf("%s\n", t)
		}
	case "quit", "exit":
		return true
	case "help":
		c.printf("commands: add <target>, remove <target>, list, quit\n")
	default:
		c.printf("unknown command %q\n", fields[0])
	}
	return false
}

func (c *Console) report(done, noop, target string, changed bool, err error) {
	switch {
	case err != nil && changed:
		// The change is live but could not be saved.
		c.printf("%s %s (not saved: %v)\n", done, target, unwrapAll(err))
	case err != nil:
		c.printf("error: %v\n", err)
	case changed:
		c.printf("%s %s\n", done, target)
	default:
		c.printf("%s: %s\n", noop, target)
	}
}

func unwrapAll(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		c.logger.Debug("console write failed", map[string]interface{}{"error": err.Error()})
	}
}
