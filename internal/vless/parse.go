package vless

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Link is a decoded share link.
type Link struct {
	CredentialID string
	Address      string
	Port         int
	Network      string
	Security     string
	SNI          string
	PublicKey    string
	ShortID      string
	Fingerprint  string
	Flow         string
	Remark       string
}

func Parse(raw string) (*Link, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid link: %w", err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("missing credential id")
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("missing address")
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return nil, fmt.Errorf("invalid port %q", u.Port())
	}

	q := u.Query()
	return &Link{
		CredentialID: u.User.Username(),
		Address:      u.Hostname(),
		Port:         port,
		Network:      q.Get("type"),
		Security:     q.Get("security"),
		SNI:          q.Get("sni"),
		PublicKey:    q.Get("pbk"),
		ShortID:      q.Get("sid"),
		Fingerprint:  q.Get("fp"),
		Flow:         q.Get("flow"),
		Remark:       u.Fragment,
	}, nil
}
