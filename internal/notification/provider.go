// Package notification composes METAR reports and delivers them through a
// mail Transport (currently email via SMTP).
package notification

import (
	"context"
	"fmt"
)

// Format selects the body type of an outgoing report.
type Format string

// Supported report formats.
const (
	FormatPlain Format = "plain"
	FormatHTML  Format = "html"
)

// ParseFormat converts a configuration or request value to a Format.
// The empty string yields def.
func ParseFormat(s string, def Format) (Format, error) {
	switch Format(s) {
	case "":
		return def, nil
	case FormatPlain, FormatHTML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown report format %q: use plain or html", s)
}

// Message is the content handed to a Transport.
type Message struct {
	To      []string
	Subject string
	Body    string
	Format  Format
	// PlainText is the text/plain fallback sent alongside an HTML body.
	PlainText string
}

// Transport is the interface for mail delivery backends.
type Transport interface {
	// Name returns the transport identifier (e.g. "smtp").
	Name() string
	// Send delivers msg. A nil error means the message was accepted for delivery.
	Send(ctx context.Context, msg Message) error
}
