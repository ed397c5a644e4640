// Package chat connects the command router to a live chat. The Twitch
// transport speaks IRC over WebSocket; the console transport reads stdin.
package chat

import (
	"context"
	"strings"
)

// Message is one chat line addressed to the bot's channel.
type Message struct {
	User    string
	Channel string
	Text    string
	Tags    map[string]string
}

// Handler answers one inbound message. A false second return means no reply.
type Handler func(ctx context.Context, msg Message) (string, bool)

// Transport delivers inbound messages to a handler and sends bot lines back.
type Transport interface {
	Run(ctx context.Context, handle Handler) error
	Say(ctx context.Context, text string) error
	Name() string
}

// Line is a parsed IRC line.
type Line struct {
	Tags     map[string]string
	Prefix   string
	Command  string
	Params   []string
	Trailing string
}

// Nick returns the nickname part of a "nick!user@host" prefix.
func (l Line) Nick() string {
	if i := strings.IndexByte(l.Prefix, '!'); i >= 0 {
		return l.Prefix[:i]
	}
	return l.Prefix
}

// ParseLine splits one raw IRC line. It returns false for blank input.
func ParseLine(raw string) (Line, bool) {
	raw = strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(raw) == "" {
		return Line{}, false
	}
	var l Line
	if strings.HasPrefix(raw, "@") {
		tags, rest, _ := strings.Cut(raw[1:], " ")
		l.Tags = parseTags(tags)
		raw = rest
	}
	raw = strings.TrimLeft(raw, " ")
	if strings.HasPrefix(raw, ":") {
		prefix, rest, _ := strings.Cut(raw[1:], " ")
		l.Prefix = prefix
		raw = strings.TrimLeft(rest, " ")
	}
	if head, trailing, ok := strings.Cut(raw, " :"); ok {
		l.Trailing = trailing
		raw = head
	} else if strings.HasPrefix(raw, ":") {
		l.Trailing = raw[1:]
		raw = ""
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Line{}, false
	}
	l.Command = strings.ToUpper(fields[0])
	l.Params = fields[1:]
	return l, true
}

func parseTags(raw string) map[string]string {
	tags := make(map[string]string)
	for _, kv := range strings.Split(raw, ";") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		tags[k] = unescapeTag(v)
	}
	return tags
}

var tagUnescaper = strings.NewReplacer(`\:`, ";", `\s`, " ", `\\`, `\`, `\r`, "\r", `\n`, "\n")

func unescapeTag(v string) string {
	return tagUnescaper.Replace(v)
}

// splitLines breaks a websocket frame into IRC lines; one frame may carry
// several.
func splitLines(frame string) []string {
	parts := strings.Split(frame, "\n")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimRight(p, "\r")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sanitize keeps an outbound chat line on a single IRC line.
func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}
