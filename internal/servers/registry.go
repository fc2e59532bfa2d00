package servers

import (
	"encoding/json"
	"fmt"

	"xraybot/internal/xray"
)

const docName = "servers"

// Endpoint is one server users can pick. Every field except Name, Address and
// PublicKey comes from the shared transport settings unless overridden.
type Endpoint struct {
	Name        string
	Address     string
	Port        int
	Security    string
	Network     string
	SNI         string
	PublicKey   string
	ShortIDs    []string
	Flow        string
	Fingerprint string
}

// override mirrors one entry of the servers document. Pointers tell an absent
// field from an explicit zero value.
type override struct {
	Name        *string   `json:"name"`
	Address     *string   `json:"address"`
	Port        *int      `json:"port"`
	Security    *string   `json:"security"`
	Network     *string   `json:"network"`
	SNI         *string   `json:"sni"`
	PublicKey   *string   `json:"public_key"`
	ShortIDs    *[]string `json:"short_ids"`
	Flow        *string   `json:"flow"`
	Fingerprint *string   `json:"fingerprint"`
}

// Registry is immutable after Build and safe for concurrent use.
type Registry struct {
	endpoints []Endpoint
	byName    map[string]int
}

// Build merges the servers document over the shared transport defaults.
// Every entry needs a name and an address. The public key is mandatory only
// for entries whose effective security is reality, since tls and none links
// never carry it. Duplicate names and unknown security modes are rejected.
func Build(doc []byte, defaults xray.TransportSettings) (*Registry, error) {
	var entries []override
	if err := json.Unmarshal(doc, &entries); err != nil {
		return nil, xray.NewConfigError(docName, fmt.Errorf("%w: %v", xray.ErrMalformed, err))
	}
	if len(entries) == 0 {
		return nil, xray.NewConfigError(docName, xray.ErrEmpty)
	}

	r := &Registry{
		endpoints: make([]Endpoint, 0, len(entries)),
		byName:    make(map[string]int, len(entries)),
	}

	for i, o := range entries {
		if o.Name == nil || *o.Name == "" {
			return nil, xray.FieldError(docName, i, "name", xray.ErrMissingField)
		}
		if o.Address == nil || *o.Address == "" {
			return nil, xray.FieldError(docName, i, "address", xray.ErrMissingField)
		}
		if _, dup := r.byName[*o.Name]; dup {
			return nil, xray.FieldError(docName, i, "name", fmt.Errorf("%w %q", xray.ErrDuplicateName, *o.Name))
		}

		ep := Endpoint{
			Name:        *o.Name,
			Address:     *o.Address,
			Port:        orDefault(o.Port, defaults.Port),
			Security:    orDefault(o.Security, defaults.Security),
			Network:     orDefault(o.Network, defaults.Network),
			SNI:         orDefault(o.SNI, defaults.SNI),
			PublicKey:   orDefault(o.PublicKey, ""),
			ShortIDs:    append([]string{}, orDefault(o.ShortIDs, defaults.ShortIDs)...),
			Flow:        orDefault(o.Flow, defaults.Flow),
			Fingerprint: orDefault(o.Fingerprint, defaults.Fingerprint),
		}

		switch ep.Security {
		case xray.SecurityNone, xray.SecurityTLS, xray.SecurityReality:
		default:
			return nil, xray.FieldError(docName, i, "security", fmt.Errorf("%w %q", xray.ErrUnsupportedSecurity, ep.Security))
		}
		if ep.Security == xray.SecurityReality && ep.PublicKey == "" {
			return nil, xray.FieldError(docName, i, "public_key", xray.ErrMissingField)
		}

		r.byName[ep.Name] = len(r.endpoints)
		r.endpoints = append(r.endpoints, ep)
	}

	return r, nil
}

func orDefault[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

// Lookup finds an endpoint by name.
func (r *Registry) Lookup(name string) (Endpoint, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Endpoint{}, false
	}
	return r.endpoints[i], true
}

// Endpoints returns the endpoints in document order.
func (r *Registry) Endpoints() []Endpoint {
	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.endpoints))
	for i, ep := range r.endpoints {
		names[i] = ep.Name
	}
	return names
}

func (r *Registry) Len() int { return len(r.endpoints) }
