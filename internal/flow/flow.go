package flow

import (
	"context"
	"errors"
	"fmt"

	"xraybot/internal/model"
	"xraybot/internal/servers"
	"xraybot/internal/token"
	"xraybot/internal/vless"
)

// Directory is the user store the flow reads ownership from. Both methods
// must be safe to call on every step and must see their own writes.
type Directory interface {
	EnsureUser(ctx context.Context, u model.TelegramUser) error
	BoundCredentials(ctx context.Context, telegramID int64) ([]model.Binding, error)
}

type Kind int

const (
	// KindNoCredentials: the user has nothing bound. Not an error.
	KindNoCredentials Kind = iota
	// KindCredentials: pick a credential.
	KindCredentials
	// KindServers: pick a server for Outcome.Credential.
	KindServers
	// KindLink: Outcome.Link is ready.
	KindLink
	// KindDenied: the credential is not bound to the requesting user.
	KindDenied
	// KindUnknownEndpoint: no server with that name.
	KindUnknownEndpoint
	// KindMalformed: the selection data could not be decoded.
	KindMalformed
	// KindNoop: placeholder button, nothing to do.
	KindNoop
)

func (k Kind) String() string {
	switch k {
	case KindNoCredentials:
		return "no_credentials"
	case KindCredentials:
		return "credentials"
	case KindServers:
		return "servers"
	case KindLink:
		return "link"
	case KindDenied:
		return "denied"
	case KindUnknownEndpoint:
		return "unknown_endpoint"
	case KindMalformed:
		return "malformed"
	case KindNoop:
		return "noop"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Rejected reports whether the outcome is a user-visible refusal.
func (k Kind) Rejected() bool {
	return k == KindDenied || k == KindUnknownEndpoint || k == KindMalformed
}

// Choice is a credential as offered to the user.
type Choice struct {
	ID    string
	Label string
}

// Outcome is the result of one interaction step. Which fields are set
// depends on Kind.
type Outcome struct {
	Kind        Kind
	Credentials []Choice           // KindCredentials
	Credential  Choice             // KindServers, KindLink
	Endpoints   []servers.Endpoint // KindServers
	Endpoint    servers.Endpoint   // KindLink
	Remark      string             // KindLink
	Link        string             // KindLink
}

// Flow drives credential → server → link selection. It keeps no state
// between steps: everything comes from the token and a fresh directory read.
type Flow struct {
	dir      Directory
	registry *servers.Registry
}

func New(dir Directory, registry *servers.Registry) *Flow {
	return &Flow{dir: dir, registry: registry}
}

// Start registers the user and lists their credentials.
func (f *Flow) Start(ctx context.Context, user model.TelegramUser) (Outcome, error) {
	if err := f.dir.EnsureUser(ctx, user); err != nil {
		return Outcome{}, err
	}
	return f.listCredentials(ctx, user.TelegramID)
}

// Handle runs the step selected by button data.
func (f *Flow) Handle(ctx context.Context, telegramID int64, data string) (Outcome, error) {
	tok, err := token.Decode(data)
	if err != nil {
		if errors.Is(err, token.ErrMalformed) {
			return Outcome{Kind: KindMalformed}, nil
		}
		return Outcome{}, err
	}

	switch t := tok.(type) {
	case token.Credential:
		return f.chooseCredential(ctx, telegramID, t.ID)
	case token.Endpoint:
		return f.chooseEndpoint(ctx, telegramID, t.CredentialID, t.Name)
	case token.Back:
		return f.listCredentials(ctx, telegramID)
	case token.Noop:
		return Outcome{Kind: KindNoop}, nil
	default:
		return Outcome{Kind: KindMalformed}, nil
	}
}

func (f *Flow) listCredentials(ctx context.Context, telegramID int64) (Outcome, error) {
	bound, err := f.dir.BoundCredentials(ctx, telegramID)
	if err != nil {
		return Outcome{}, err
	}
	if len(bound) == 0 {
		return Outcome{Kind: KindNoCredentials}, nil
	}
	choices := make([]Choice, len(bound))
	for i, b := range bound {
		choices[i] = choiceOf(b)
	}
	return Outcome{Kind: KindCredentials, Credentials: choices}, nil
}

func (f *Flow) chooseCredential(ctx context.Context, telegramID int64, credentialID string) (Outcome, error) {
	choice, ok, err := f.owned(ctx, telegramID, credentialID)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{Kind: KindDenied}, nil
	}
	return Outcome{Kind: KindServers, Credential: choice, Endpoints: f.registry.Endpoints()}, nil
}

func (f *Flow) chooseEndpoint(ctx context.Context, telegramID int64, credentialID, name string) (Outcome, error) {
	// Ownership first: an unknown server must not reveal anything about a
	// credential the user does not own.
	choice, ok, err := f.owned(ctx, telegramID, credentialID)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{Kind: KindDenied}, nil
	}

	ep, found := f.registry.Lookup(name)
	if !found {
		return Outcome{Kind: KindUnknownEndpoint}, nil
	}

	remark := ep.Name + "-" + choice.Label
	return Outcome{
		Kind:       KindLink,
		Credential: choice,
		Endpoint:   ep,
		Remark:     remark,
		Link:       vless.Build(choice.ID, ep, remark),
	}, nil
}

// owned re-reads the user's bindings; bindings may change between steps.
func (f *Flow) owned(ctx context.Context, telegramID int64, credentialID string) (Choice, bool, error) {
	bound, err := f.dir.BoundCredentials(ctx, telegramID)
	if err != nil {
		return Choice{}, false, err
	}
	for _, b := range bound {
		if b.UUID == credentialID {
			return choiceOf(b), true, nil
		}
	}
	return Choice{}, false, nil
}

func choiceOf(b model.Binding) Choice {
	return Choice{ID: b.UUID, Label: Label(b.Email, b.UUID)}
}

// Label is the display name of a credential: its email, or the first eight
// characters of its id.
func Label(email, id string) string {
	if email != "" {
		return email
	}
	if r := []rune(id); len(r) > 8 {
		return string(r[:8])
	}
	return id
}
