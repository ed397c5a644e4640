package chat

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"
)

func TestParseLinePrivmsgWithTags(t *testing.T) {
	raw := "@badge-info=;display-name=Alice\\sB;mod=0 :alice!alice@alice.tmi.twitch.tv PRIVMSG #streamer :!task add buy milk\r\n"
	l, ok := ParseLine(raw)
	if !ok {
		t.Fatalf("ParseLine() ok = false")
	}
	if l.Command != "PRIVMSG" {
		t.Fatalf("Command = %q, want PRIVMSG", l.Command)
	}
	if l.Nick() != "alice" {
		t.Fatalf("Nick() = %q, want alice", l.Nick())
	}
	if len(l.Params) != 1 || l.Params[0] != "#streamer" {
		t.Fatalf("Params = %q, want [#streamer]", l.Params)
	}
	if l.Trailing != "!task add buy milk" {
		t.Fatalf("Trailing = %q", l.Trailing)
	}
	if l.Tags["display-name"] != "Alice B" {
		t.Fatalf("display-name tag = %q, want %q", l.Tags["display-name"], "Alice B")
	}
}

func TestParseLinePingAndBlank(t *testing.T) {
	l, ok := ParseLine("PING :tmi.twitch.tv")
	if !ok || l.Command != "PING" || l.Trailing != "tmi.twitch.tv" {
		t.Fatalf("ParseLine(PING) = %+v, %v", l, ok)
	}
	if _, ok := ParseLine("  \r\n"); ok {
		t.Fatalf("ParseLine(blank) ok = true, want false")
	}
}

func TestSplitLines(t *testing.T) {
	got := splitLines("PING :a\r\n:x PRIVMSG #c :hi\r\n")
	if len(got) != 2 || got[0] != "PING :a" {
		t.Fatalf("splitLines() = %q", got)
	}
}

func TestConsoleRoutesLinesAndReplies(t *testing.T) {
	in := strings.NewReader("alice: !hi\n\nplain text\nbob:!task list\n")
	var out bytes.Buffer
	c := NewConsole(in, &out, "streamer")

	var seen []string
	err := c.Run(context.Background(), func(_ context.Context, msg Message) (string, bool) {
		seen = append(seen, msg.User+"|"+msg.Text)
		if msg.Text == "!hi" {
			return "hello", true
		}
		return "", false
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"alice|!hi", "streamer|plain text", "bob|!task list"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Fatalf("messages = %q, want %q", seen, want)
	}
	if out.String() != "hello\n" {
		t.Fatalf("output = %q, want %q", out.String(), "hello\n")
	}
}

func TestNewTokenSourceStatic(t *testing.T) {
	ts, err := NewTokenSource(context.Background(), TokenConfig{StaticToken: "oauth:abc123"})
	if err != nil {
		t.Fatalf("NewTokenSource() error = %v", err)
	}
	pass, err := ircPassword(ts)
	if err != nil {
		t.Fatalf("ircPassword() error = %v", err)
	}
	if pass != "oauth:abc123" {
		t.Fatalf("password = %q, want %q", pass, "oauth:abc123")
	}
	if _, err := NewTokenSource(context.Background(), TokenConfig{}); err == nil {
		t.Fatalf("NewTokenSource(empty) error = nil, want error")
	}
}

func TestNewTokenSourceRefreshes(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "r1" || r.Form.Get("client_id") != "cid" {
			t.Errorf("unexpected token request form: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"bearer","refresh_token":"r2","expires_in":3600}`))
	}))
	defer srv.Close()

	ts, err := NewTokenSource(context.Background(), TokenConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		RefreshToken: "r1",
		TokenURL:     srv.URL,
	})
	if err != nil {
		t.Fatalf("NewTokenSource() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		pass, err := ircPassword(ts)
		if err != nil {
			t.Fatalf("ircPassword() error = %v", err)
		}
		if pass != "oauth:fresh" {
			t.Fatalf("password = %q, want oauth:fresh", pass)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("token endpoint calls = %d, want 1", got)
	}
}

// fakeIRC is a minimal Twitch chat server speaking IRC lines over a websocket.
type fakeIRC struct {
	t        *testing.T
	mu       sync.Mutex
	received []string
	sent     chan string
}

func (f *fakeIRC) handler(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("Upgrade() error = %v", err)
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		for _, line := range splitLines(string(data)) {
			f.mu.Lock()
			f.received = append(f.received, line)
			f.mu.Unlock()
			switch {
			case strings.HasPrefix(line, "JOIN "):
				_ = conn.WriteMessage(websocket.TextMessage, []byte(
					":pomobot!pomobot@pomobot.tmi.twitch.tv JOIN #streamer\r\n"+
						"PING :tmi.twitch.tv\r\n"+
						":alice!alice@alice.tmi.twitch.tv PRIVMSG #streamer :!hi\r\n"))
			case strings.HasPrefix(line, "PRIVMSG "):
				f.sent <- line
			}
		}
	}
}

func (f *fakeIRC) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func TestTwitchHandshakePingAndReply(t *testing.T) {
	fake := &fakeIRC{t: t, sent: make(chan string, 4)}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	defer srv.Close()

	tw := NewTwitch(TwitchConfig{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		BotUsername: "PomoBot",
		Channel:     "#Streamer",
	}, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"}))

	var events []string
	var evMu sync.Mutex
	tw.SetEventHook(func(e string) {
		evMu.Lock()
		events = append(events, e)
		evMu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tw.Run(ctx, func(_ context.Context, msg Message) (string, bool) {
			if msg.User == "alice" && msg.Text == "!hi" {
				return "hello", true
			}
			return "", false
		})
	}()

	select {
	case line := <-fake.sent:
		if line != "PRIVMSG #streamer :hello" {
			t.Fatalf("reply line = %q", line)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no reply from bot; server saw %q", fake.lines())
	}

	got := strings.Join(fake.lines(), "\n")
	for _, want := range []string{"PASS oauth:tok", "NICK pomobot", "JOIN #streamer", "PONG :tmi.twitch.tv"} {
		if !strings.Contains(got, want) {
			t.Fatalf("server lines missing %q:\n%s", want, got)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run() did not return after cancel")
	}

	evMu.Lock()
	defer evMu.Unlock()
	if len(events) == 0 || events[0] != "connected" {
		t.Fatalf("events = %q, want connected first", events)
	}
}

func TestTwitchStopsOnAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(":tmi.twitch.tv NOTICE * :Login authentication failed\r\n"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	tw := NewTwitch(TwitchConfig{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		BotUsername: "pomobot",
		Channel:     "streamer",
	}, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "bad"}))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := tw.Run(ctx, func(context.Context, Message) (string, bool) { return "", false })
	if err == nil || !strings.Contains(err.Error(), "authentication failed") {
		t.Fatalf("Run() error = %v, want auth failure", err)
	}
}

func TestTwitchStopsWhenRefreshIsRejected(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid refresh token"}`))
	}))
	defer tokenSrv.Close()

	tokens, err := NewTokenSource(context.Background(), TokenConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "revoked",
		TokenURL:     tokenSrv.URL,
	})
	if err != nil {
		t.Fatalf("NewTokenSource() error = %v", err)
	}
	tw := NewTwitch(TwitchConfig{URL: "ws://127.0.0.1:1", BotUsername: "pomobot", Channel: "streamer"}, tokens)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err = tw.Run(ctx, func(context.Context, Message) (string, bool) { return "", false })
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("Run() error = %v, want ErrAuthFailed", err)
	}
}

func TestTwitchStopsWhenHandshakeIsForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	tw := NewTwitch(TwitchConfig{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		BotUsername: "pomobot",
		Channel:     "streamer",
	}, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"}))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := tw.Run(ctx, func(context.Context, Message) (string, bool) { return "", false })
	if !errors.Is(err, ErrEndpointRejected) {
		t.Fatalf("Run() error = %v, want ErrEndpointRejected", err)
	}
}
