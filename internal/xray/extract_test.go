package xray

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const realityConfig = `{
  "log": {"loglevel": "warning"},
  "inbounds": [
    {"protocol": "dokodemo-door", "port": 10085, "settings": {"address": "127.0.0.1"}},
    {
      "protocol": "vless",
      "port": 443,
      "settings": {
        "clients": [
          {"id": "11111111-1111-1111-1111-111111111111", "email": "alice@example.com", "flow": "xtls-rprx-vision"},
          {"id": "22222222-2222-2222-2222-222222222222", "flow": ""},
          {"id": "", "email": "ghost"}
        ],
        "decryption": "none"
      },
      "streamSettings": {
        "network": "tcp",
        "security": "reality",
        "realitySettings": {
          "dest": "example.com:443",
          "serverNames": ["example.com", "www.example.com"],
          "privateKey": "private",
          "shortIds": ["ab12", "cd34"]
        }
      }
    }
  ],
  "outbounds": [{"protocol": "freedom"}]
}`

func TestExtractReality(t *testing.T) {
	cfg, err := Extract([]byte(realityConfig), "vless")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCreds := []Credential{
		{ID: "11111111-1111-1111-1111-111111111111", Email: "alice@example.com", Flow: "xtls-rprx-vision"},
		{ID: "22222222-2222-2222-2222-222222222222"},
	}
	if !reflect.DeepEqual(cfg.Credentials, wantCreds) {
		t.Fatalf("credentials=%+v, want %+v", cfg.Credentials, wantCreds)
	}

	want := TransportSettings{
		Port:        443,
		Security:    SecurityReality,
		Network:     "tcp",
		SNI:         "example.com",
		ShortIDs:    []string{"ab12", "cd34"},
		Flow:        "xtls-rprx-vision",
		Fingerprint: "chrome",
	}
	if !reflect.DeepEqual(cfg.Transport, want) {
		t.Fatalf("transport=%+v, want %+v", cfg.Transport, want)
	}
}

func TestExtractEndToEndSingleClient(t *testing.T) {
	doc := `{"inbounds":[{"protocol":"vless","port":443,
	  "settings":{"clients":[{"id":"11111111-aaaa-bbbb-cccc-dddddddddddd","flow":"xtls-rprx-vision"}]},
	  "streamSettings":{"network":"tcp","security":"reality",
	    "realitySettings":{"serverNames":["example.com"],"shortIds":["ab12"]}}}]}`

	cfg, err := Extract([]byte(doc), "vless")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Credentials) != 1 || cfg.Credentials[0].ID != "11111111-aaaa-bbbb-cccc-dddddddddddd" {
		t.Fatalf("credentials=%+v", cfg.Credentials)
	}
	if cfg.Credentials[0].Email != "" {
		t.Fatalf("email=%q, want empty default", cfg.Credentials[0].Email)
	}
	if cfg.Transport.SNI != "example.com" {
		t.Fatalf("sni=%q, want example.com", cfg.Transport.SNI)
	}
	if cfg.Transport.Flow != "xtls-rprx-vision" {
		t.Fatalf("flow=%q, want xtls-rprx-vision", cfg.Transport.Flow)
	}
	if cfg.Transport.Fingerprint != "chrome" {
		t.Fatalf("fingerprint=%q, want chrome", cfg.Transport.Fingerprint)
	}
}

func TestExtractFlowIsFirstMatch(t *testing.T) {
	doc := `{"inbounds":[{"protocol":"vless","settings":{"clients":[
	  {"id":"a"},
	  {"id":"b","flow":"first-flow"},
	  {"id":"c","flow":"second-flow"},
	  {"id":"d","flow":"second-flow"}]}}]}`

	cfg, err := Extract([]byte(doc), "vless")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transport.Flow != "first-flow" {
		t.Fatalf("flow=%q, want first-flow", cfg.Transport.Flow)
	}
}

func TestExtractFlowIgnoresDroppedClients(t *testing.T) {
	doc := `{"inbounds":[{"protocol":"vless","settings":{"clients":[
	  {"id":"","flow":"dropped-flow"},
	  {"id":"a","flow":"xtls-rprx-vision"}]}}]}`

	cfg, err := Extract([]byte(doc), "vless")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Credentials) != 1 || cfg.Transport.Flow != "xtls-rprx-vision" {
		t.Fatalf("credentials=%+v flow=%q", cfg.Credentials, cfg.Transport.Flow)
	}
}

func TestExtractSecurityModes(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   TransportSettings
	}{
		{
			name:   "no stream settings",
			stream: ``,
			want:   TransportSettings{Port: 443, Security: "none", Network: "tcp", ShortIDs: []string{}, Fingerprint: "chrome"},
		},
		{
			name:   "none ignores tls settings",
			stream: `,"streamSettings":{"network":"ws","security":"none","tlsSettings":{"serverName":"ignored.example"}}`,
			want:   TransportSettings{Port: 443, Security: "none", Network: "ws", ShortIDs: []string{}, Fingerprint: "chrome"},
		},
		{
			name:   "tls with server name",
			stream: `,"streamSettings":{"network":"grpc","security":"tls","tlsSettings":{"serverName":"tls.example"}}`,
			want:   TransportSettings{Port: 443, Security: "tls", Network: "grpc", SNI: "tls.example", ShortIDs: []string{}, Fingerprint: "chrome"},
		},
		{
			name:   "tls without settings",
			stream: `,"streamSettings":{"security":"tls"}`,
			want:   TransportSettings{Port: 443, Security: "tls", Network: "tcp", ShortIDs: []string{}, Fingerprint: "chrome"},
		},
		{
			name:   "reality with empty lists",
			stream: `,"streamSettings":{"security":"reality","realitySettings":{"serverNames":[],"shortIds":[],"fingerprint":""}}`,
			want:   TransportSettings{Port: 443, Security: "reality", Network: "tcp", ShortIDs: []string{}, Fingerprint: "chrome"},
		},
		{
			name:   "reality with fingerprint",
			stream: `,"streamSettings":{"security":"reality","realitySettings":{"serverNames":["r.example"],"fingerprint":"firefox"}}`,
			want:   TransportSettings{Port: 443, Security: "reality", Network: "tcp", SNI: "r.example", ShortIDs: []string{}, Fingerprint: "firefox"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := `{"inbounds":[{"protocol":"vless","settings":{"clients":[]}` + tc.stream + `}]}`
			cfg, err := Extract([]byte(doc), "vless")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(cfg.Transport, tc.want) {
				t.Fatalf("transport=%+v, want %+v", cfg.Transport, tc.want)
			}
		})
	}
}

func TestExtractPort(t *testing.T) {
	doc := `{"inbounds":[{"protocol":"vless","port":8443}]}`
	cfg, err := Extract([]byte(doc), "vless")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transport.Port != 8443 {
		t.Fatalf("port=%d, want 8443", cfg.Transport.Port)
	}
	if len(cfg.Credentials) != 0 {
		t.Fatalf("credentials=%+v, want none", cfg.Credentials)
	}
}

func TestExtractAcceptsComments(t *testing.T) {
	doc := `{
	  // managed by ansible
	  "inbounds": [
	    {"protocol": "vless", "port": 443, /* main */ "settings": {"clients": [{"id": "x"},]}},
	  ],
	}`
	cfg, err := Extract([]byte(doc), "vless")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Credentials) != 1 || cfg.Credentials[0].ID != "x" {
		t.Fatalf("credentials=%+v", cfg.Credentials)
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{name: "no inbounds", doc: `{}`, want: ErrNoInbound},
		{name: "other protocol only", doc: `{"inbounds":[{"protocol":"vmess","port":443}]}`, want: ErrNoInbound},
		{name: "invalid json", doc: `{"inbounds":`, want: ErrMalformed},
		{name: "bad clients", doc: `{"inbounds":[{"protocol":"vless","settings":{"clients":[{"id":5}]}}]}`, want: ErrMalformed},
		{name: "unknown security", doc: `{"inbounds":[{"protocol":"vless","streamSettings":{"security":"xtls"}}]}`, want: ErrUnsupportedSecurity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract([]byte(tc.doc), "vless")
			if err == nil {
				t.Fatalf("expected error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err=%T %v, want *ConfigError", err, err)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(realityConfig), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path, "vless")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Credentials) != 2 {
		t.Fatalf("credentials=%d, want 2", len(cfg.Credentials))
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"), "vless"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestConfigErrorMessage(t *testing.T) {
	err := FieldError("servers", 2, "address", ErrMissingField)
	if got, want := err.Error(), "config error: servers[2].address: missing field"; got != want {
		t.Fatalf("error=%q, want %q", got, want)
	}
	err = NewConfigError("xray config", ErrNoInbound)
	if got, want := err.Error(), "config error: xray config: no matching inbound"; got != want {
		t.Fatalf("error=%q, want %q", got, want)
	}
}
