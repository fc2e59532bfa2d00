package bot

import (
	"xraybot/internal/flow"
	"xraybot/internal/servers"
	"xraybot/internal/token"
)

type Style int

const (
	Plain Style = iota
	Bold
	Code
)

// Span is a run of message text with one style.
type Span struct {
	Text  string
	Style Style
}

type Button struct {
	Text string
	Data string
}

// Reply is what the transport does in answer to one update. A callback with
// a non-empty Alert shows only the alert.
type Reply struct {
	Text     []Span
	Keyboard [][]Button
	// Edit replaces the message the pressed button belongs to.
	Edit  bool
	Alert string
}

// Command is the chat command that started a conversation.
type Command int

const (
	CommandStart Command = iota
	CommandMyKeys
)

const (
	textDenied          = "This key is not assigned to you."
	textUnknownEndpoint = "Unknown server."
	textMalformed       = "Invalid request."
)

// Renderer turns flow outcomes into replies. Flags maps endpoint names to a
// country flag shown on the server buttons.
type Renderer struct {
	Flags map[string]string
}

func (r Renderer) Command(cmd Command, out flow.Outcome) Reply {
	switch cmd {
	case CommandMyKeys:
		if out.Kind != flow.KindCredentials {
			return plain("No keys assigned. Contact the admin.")
		}
		return Reply{Text: spans("Your keys:"), Keyboard: keysKeyboard(out.Credentials)}
	default:
		if out.Kind != flow.KindCredentials {
			return plain("You have no keys assigned yet.\nContact the admin to get access.")
		}
		return Reply{
			Text:     spans("Your Xray keys. Tap one to choose a server:"),
			Keyboard: keysKeyboard(out.Credentials),
		}
	}
}

func (r Renderer) Callback(out flow.Outcome) Reply {
	switch out.Kind {
	case flow.KindCredentials, flow.KindNoCredentials:
		return Reply{Text: spans("Your keys:"), Keyboard: keysKeyboard(out.Credentials), Edit: true}
	case flow.KindServers:
		return Reply{
			Text: []Span{
				{Text: "Key: "},
				{Text: out.Credential.Label, Style: Bold},
				{Text: "\n\nChoose a server:"},
			},
			Keyboard: r.serversKeyboard(out.Credential.ID, out.Endpoints),
			Edit:     true,
		}
	case flow.KindLink:
		return Reply{Text: []Span{
			{Text: out.Endpoint.Name, Style: Bold},
			{Text: " connection link:\n\n"},
			{Text: out.Link, Style: Code},
			{Text: "\n\nCopy and paste into Happ (or any VLESS-compatible client)."},
		}}
	case flow.KindDenied:
		return Reply{Alert: textDenied}
	case flow.KindUnknownEndpoint:
		return Reply{Alert: textUnknownEndpoint}
	case flow.KindMalformed:
		return Reply{Alert: textMalformed}
	default:
		return Reply{}
	}
}

func keysKeyboard(creds []flow.Choice) [][]Button {
	if len(creds) == 0 {
		return [][]Button{{{Text: "No keys assigned", Data: token.Noop{}.Encode()}}}
	}
	rows := make([][]Button, 0, len(creds))
	for _, c := range creds {
		rows = append(rows, []Button{{
			Text: "🔑 " + c.Label,
			Data: token.Credential{ID: c.ID}.Encode(),
		}})
	}
	return rows
}

func (r Renderer) serversKeyboard(credentialID string, endpoints []servers.Endpoint) [][]Button {
	rows := make([][]Button, 0, len(endpoints)+1)
	for _, ep := range endpoints {
		icon := "🌐"
		if f, ok := r.Flags[ep.Name]; ok && f != "" {
			icon = f
		}
		rows = append(rows, []Button{{
			Text: icon + " " + ep.Name,
			Data: token.Endpoint{Name: ep.Name, CredentialID: credentialID}.Encode(),
		}})
	}
	rows = append(rows, []Button{{Text: "« Back", Data: token.Back{}.Encode()}})
	return rows
}

func plain(s string) Reply { return Reply{Text: spans(s)} }

func spans(s string) []Span { return []Span{{Text: s}} }

// PlainText flattens the spans, for logs and tests.
func (r Reply) PlainText() string {
	var s string
	for _, sp := range r.Text {
		s += sp.Text
	}
	return s
}
