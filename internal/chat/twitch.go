package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"

	"github.com/ent0n29/pomochat/internal/reliability"
)

const (
	writeTimeout = 3 * time.Second
	// Twitch pings roughly every five minutes; a silent socket past this is dead.
	readIdleTimeout = 6 * time.Minute
)

var (
	ErrAuthFailed       = errors.New("chat authentication failed")
	ErrEndpointRejected = errors.New("chat endpoint rejected the connection")
)

type TwitchConfig struct {
	URL          string
	BotUsername  string
	Channel      string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Twitch is the IRC-over-WebSocket transport. Run owns the connection and
// reconnects with capped exponential backoff until ctx is done.
type Twitch struct {
	cfg    TwitchConfig
	tokens oauth2.TokenSource
	dialer websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn

	onEvent func(event string)
}

func NewTwitch(cfg TwitchConfig, tokens oauth2.TokenSource) *Twitch {
	cfg.Channel = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	cfg.BotUsername = strings.ToLower(strings.TrimSpace(cfg.BotUsername))
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = cfg.ReconnectMin
	}
	return &Twitch{
		cfg:    cfg,
		tokens: tokens,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (t *Twitch) Name() string { return "twitch" }

// SetEventHook registers a callback for transport events such as
// "connected", "disconnected", "message" and "reply".
func (t *Twitch) SetEventHook(hook func(event string)) {
	t.onEvent = hook
}

func (t *Twitch) Run(ctx context.Context, handle Handler) error {
	attempt := 0
	for {
		connected, err := t.session(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrEndpointRejected) {
			return err
		}
		if connected {
			attempt = 0
		}
		wait := reliability.ExponentialBackoff(attempt, t.cfg.ReconnectMin, t.cfg.ReconnectMax)
		attempt++
		log.Printf("chat connection lost: %v (reconnecting in %s)", err, wait)
		t.emit("disconnected")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Say sends a line to the channel on the current connection. Lines sent
// while disconnected are dropped.
func (t *Twitch) Say(_ context.Context, text string) error {
	text = sanitize(text)
	if text == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return errors.New("chat is not connected")
	}
	return t.writeLocked("PRIVMSG #" + t.cfg.Channel + " :" + text)
}

func (t *Twitch) session(ctx context.Context, handle Handler) (bool, error) {
	password, err := ircPassword(t.tokens)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && !reliability.IsRetryableHTTPStatus(re.Response.StatusCode) {
			return false, fmt.Errorf("%w: token refresh rejected (%s)", ErrAuthFailed, re.Response.Status)
		}
		return false, fmt.Errorf("chat token: %w", err)
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			if resp.StatusCode >= 400 && !reliability.IsRetryableHTTPStatus(resp.StatusCode) {
				return false, fmt.Errorf("%w (%s)", ErrEndpointRejected, resp.Status)
			}
			return false, fmt.Errorf("chat dial failed (%s): %w", resp.Status, err)
		}
		return false, fmt.Errorf("chat dial failed: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	t.mu.Lock()
	t.conn = conn
	err = t.handshakeLocked(password)
	t.mu.Unlock()
	defer t.detach(conn)
	if err != nil {
		return false, err
	}

	joined := false
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return joined, err
		}
		for _, raw := range splitLines(string(data)) {
			line, ok := ParseLine(raw)
			if !ok {
				continue
			}
			done, err := t.dispatch(ctx, line, handle, &joined)
			if err != nil || done {
				return joined, err
			}
		}
	}
}

func (t *Twitch) handshakeLocked(password string) error {
	for _, cmd := range []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"PASS " + password,
		"NICK " + t.cfg.BotUsername,
		"JOIN #" + t.cfg.Channel,
	} {
		if err := t.writeLocked(cmd); err != nil {
			return fmt.Errorf("chat handshake: %w", err)
		}
	}
	return nil
}

// dispatch handles one server line. It reports done when the server asked
// the client to reconnect.
func (t *Twitch) dispatch(ctx context.Context, line Line, handle Handler, joined *bool) (bool, error) {
	switch line.Command {
	case "PING":
		t.mu.Lock()
		err := t.writeLocked("PONG :" + line.Trailing)
		t.mu.Unlock()
		return false, err
	case "RECONNECT":
		return true, errors.New("server requested reconnect")
	case "NOTICE":
		if reliability.IsFatalChatNotice(line.Trailing) {
			return true, fmt.Errorf("%w: %s", ErrAuthFailed, line.Trailing)
		}
		log.Printf("chat notice: %s", line.Trailing)
	case "JOIN":
		if strings.EqualFold(line.Nick(), t.cfg.BotUsername) && !*joined {
			*joined = true
			log.Printf("joined #%s as %s", t.cfg.Channel, t.cfg.BotUsername)
			t.emit("connected")
		}
	case "PRIVMSG":
		if len(line.Params) == 0 {
			return false, nil
		}
		msg := Message{
			User:    line.Nick(),
			Channel: strings.TrimPrefix(line.Params[0], "#"),
			Text:    line.Trailing,
			Tags:    line.Tags,
		}
		if strings.EqualFold(msg.User, t.cfg.BotUsername) {
			return false, nil
		}
		t.emit("message")
		reply, ok := handle(ctx, msg)
		if !ok {
			return false, nil
		}
		t.emit("reply")
		return false, t.Say(ctx, reply)
	}
	return false, nil
}

func (t *Twitch) writeLocked(line string) error {
	if t.conn == nil {
		return errors.New("chat is not connected")
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	defer t.conn.SetWriteDeadline(time.Time{})
	return t.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n"))
}

func (t *Twitch) detach(conn *websocket.Conn) {
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	t.mu.Unlock()
	_ = conn.Close()
}

func (t *Twitch) emit(event string) {
	if t.onEvent != nil {
		t.onEvent(event)
	}
}
