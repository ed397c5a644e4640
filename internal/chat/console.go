package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console reads chat lines from a reader, one per line, as "user: text". A
// line without a "user:" prefix is attributed to the default user. Replies
// and announcements are written to out.
type Console struct {
	in          io.Reader
	defaultUser string

	mu  sync.Mutex
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer, defaultUser string) *Console {
	return &Console{in: in, out: out, defaultUser: defaultUser}
}

func (c *Console) Name() string { return "console" }

// Run returns when the input is exhausted or ctx is done.
func (c *Console) Run(ctx context.Context, handle Handler) error {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-lines:
			if !ok {
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}
			msg, ok := c.parse(raw)
			if !ok {
				continue
			}
			if reply, ok := handle(ctx, msg); ok {
				if err := c.Say(ctx, reply); err != nil {
					return err
				}
			}
		}
	}
}

func (c *Console) Say(_ context.Context, text string) error {
	text = sanitize(text)
	if text == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, text)
	return err
}

func (c *Console) parse(raw string) (Message, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Message{}, false
	}
	user := c.defaultUser
	text := raw
	if name, rest, ok := strings.Cut(raw, ":"); ok && !strings.ContainsAny(name, " \t!") && name != "" {
		user = name
		text = strings.TrimSpace(rest)
	}
	return Message{User: user, Channel: "console", Text: text}, true
}
