package xray

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
	"github.com/xtls/xray-core/infra/conf"
)

const (
	SecurityNone    = "none"
	SecurityTLS     = "tls"
	SecurityReality = "reality"

	DefaultPort        = 443
	DefaultNetwork     = "tcp"
	DefaultFingerprint = "chrome"
)

// Credential is one client entry of the inbound.
type Credential struct {
	ID    string
	Email string
	Flow  string
}

// TransportSettings are the connection parameters shared by every endpoint
// unless an endpoint overrides them.
type TransportSettings struct {
	Port        int
	Security    string
	Network     string
	SNI         string
	ShortIDs    []string
	Flow        string
	Fingerprint string
}

// Config is what the bot needs from the Xray server config.
type Config struct {
	Credentials []Credential
	Transport   TransportSettings
}

type document struct {
	Inbounds []conf.InboundDetourConfig `json:"inbounds"`
}

type inboundSettings struct {
	Clients []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Flow  string `json:"flow"`
	} `json:"clients"`
}

// LoadConfig reads an Xray config file and extracts its first inbound of the
// given protocol.
func LoadConfig(path, protocol string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read xray config: %w", err)
	}
	return Extract(data, protocol)
}

// Extract parses an Xray config document. Comments and trailing commas are
// accepted, as Xray itself accepts them.
func Extract(data []byte, protocol string) (*Config, error) {
	var doc document
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, NewConfigError("xray config", fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	var inbound *conf.InboundDetourConfig
	for i := range doc.Inbounds {
		if doc.Inbounds[i].Protocol == protocol {
			inbound = &doc.Inbounds[i]
			break
		}
	}
	if inbound == nil {
		return nil, NewConfigError("xray config", fmt.Errorf("%w (protocol %q)", ErrNoInbound, protocol))
	}

	transport, err := extractTransport(inbound)
	if err != nil {
		return nil, err
	}

	credentials, err := extractCredentials(inbound)
	if err != nil {
		return nil, err
	}
	for _, c := range credentials {
		if c.Flow != "" {
			transport.Flow = c.Flow
			break
		}
	}

	return &Config{Credentials: credentials, Transport: transport}, nil
}

func extractTransport(inbound *conf.InboundDetourConfig) (TransportSettings, error) {
	ts := TransportSettings{
		Port:        DefaultPort,
		Security:    SecurityNone,
		Network:     DefaultNetwork,
		ShortIDs:    []string{},
		Fingerprint: DefaultFingerprint,
	}

	// A port range advertises its lower bound.
	if inbound.PortList != nil && len(inbound.PortList.Range) > 0 {
		ts.Port = int(inbound.PortList.Range[0].From)
	}

	stream := inbound.StreamSetting
	if stream == nil {
		return ts, nil
	}
	if stream.Network != nil && *stream.Network != "" {
		ts.Network = string(*stream.Network)
	}
	if stream.Security != "" {
		ts.Security = stream.Security
	}

	switch ts.Security {
	case SecurityNone:
	case SecurityTLS:
		if stream.TLSSettings != nil {
			ts.SNI = stream.TLSSettings.ServerName
		}
	case SecurityReality:
		if r := stream.REALITYSettings; r != nil {
			if len(r.ServerNames) > 0 {
				ts.SNI = r.ServerNames[0]
			}
			if r.ShortIds != nil {
				ts.ShortIDs = append([]string{}, r.ShortIds...)
			}
			if r.Fingerprint != "" {
				ts.Fingerprint = r.Fingerprint
			}
		}
	default:
		return ts, FieldError("xray config", -1, "streamSettings.security",
			fmt.Errorf("%w %q", ErrUnsupportedSecurity, ts.Security))
	}
	return ts, nil
}

func extractCredentials(inbound *conf.InboundDetourConfig) ([]Credential, error) {
	credentials := []Credential{}
	if inbound.Settings == nil {
		return credentials, nil
	}

	var settings inboundSettings
	if err := json.Unmarshal(*inbound.Settings, &settings); err != nil {
		return nil, FieldError("xray config", -1, "settings.clients", fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	for _, c := range settings.Clients {
		if c.ID == "" {
			continue
		}
		credentials = append(credentials, Credential{ID: c.ID, Email: c.Email, Flow: c.Flow})
	}
	return credentials, nil
}
