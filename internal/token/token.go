// Package token encodes the selection state carried in inline button data.
//
// Wire forms:
//
//	uuid:<credential>
//	link:<endpoint>:<credential>
//	back:keys
//	noop
//
// Components are query-escaped, so ':' inside a name or id never splits a
// token. Decode accepts only the canonical encoding of each value, which makes
// Encode(Decode(s)) == s for every accepted s.
package token

import (
	"errors"
	"net/url"
	"strings"
)

// MaxLen is the Telegram limit for callback data.
const MaxLen = 64

var ErrMalformed = errors.New("malformed selection token")

const (
	prefixCredential = "uuid:"
	prefixEndpoint   = "link:"
	wireBack         = "back:keys"
	wireNoop         = "noop"
)

// Token is one of Credential, Endpoint, Back or Noop.
type Token interface {
	Encode() string
	isToken()
}

// Credential selects a credential and asks for the server list.
type Credential struct {
	ID string
}

// Endpoint selects a server for a credential and asks for the link.
type Endpoint struct {
	Name         string
	CredentialID string
}

// Back returns to the credential list.
type Back struct{}

// Noop is attached to placeholder buttons.
type Noop struct{}

func (Credential) isToken() {}
func (Endpoint) isToken()   {}
func (Back) isToken()       {}
func (Noop) isToken()       {}

func (t Credential) Encode() string {
	return prefixCredential + url.QueryEscape(t.ID)
}

func (t Endpoint) Encode() string {
	return prefixEndpoint + url.QueryEscape(t.Name) + ":" + url.QueryEscape(t.CredentialID)
}

func (Back) Encode() string { return wireBack }

func (Noop) Encode() string { return wireNoop }

// Decode parses button data. It never panics; anything that is not the
// canonical encoding of a valid token yields ErrMalformed.
func Decode(s string) (Token, error) {
	switch {
	case s == wireBack:
		return Back{}, nil
	case s == wireNoop:
		return Noop{}, nil
	case strings.HasPrefix(s, prefixCredential):
		id, ok := component(strings.TrimPrefix(s, prefixCredential))
		if !ok {
			return nil, ErrMalformed
		}
		return Credential{ID: id}, nil
	case strings.HasPrefix(s, prefixEndpoint):
		name, id, found := strings.Cut(strings.TrimPrefix(s, prefixEndpoint), ":")
		if !found {
			return nil, ErrMalformed
		}
		name, okName := component(name)
		id, okID := component(id)
		if !okName || !okID {
			return nil, ErrMalformed
		}
		return Endpoint{Name: name, CredentialID: id}, nil
	default:
		return nil, ErrMalformed
	}
}

// component unescapes one field and rejects empty or non-canonical values.
func component(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	v, err := url.QueryUnescape(raw)
	if err != nil || v == "" || url.QueryEscape(v) != raw {
		return "", false
	}
	return v, true
}
