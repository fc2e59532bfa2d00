package vless

import (
	"strings"
	"testing"

	"xraybot/internal/servers"
)

const testID = "11111111-1111-1111-1111-111111111111"

func realityEndpoint() servers.Endpoint {
	return servers.Endpoint{
		Name:        "NL",
		Address:     "1.2.3.4",
		Port:        443,
		Security:    "reality",
		Network:     "tcp",
		SNI:         "example.com",
		PublicKey:   "PK",
		ShortIDs:    []string{"abc", "def"},
		Flow:        "xtls-rprx-vision",
		Fingerprint: "chrome",
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name   string
		ep     func() servers.Endpoint
		remark string
		want   string
	}{
		{
			name:   "reality",
			ep:     realityEndpoint,
			remark: "NL-alice@example.com",
			want:   "vless://" + testID + "@1.2.3.4:443?type=tcp&security=reality&sni=example.com&pbk=PK&sid=abc&fp=chrome&flow=xtls-rprx-vision#NL-alice@example.com",
		},
		{
			name: "reality skips empty fields",
			ep: func() servers.Endpoint {
				ep := realityEndpoint()
				ep.SNI, ep.PublicKey, ep.ShortIDs, ep.Fingerprint, ep.Flow = "", "", nil, "", ""
				return ep
			},
			want: "vless://" + testID + "@1.2.3.4:443?type=tcp&security=reality#1.2.3.4:443",
		},
		{
			name: "tls",
			ep: func() servers.Endpoint {
				ep := realityEndpoint()
				ep.Security, ep.Network = "tls", "ws"
				return ep
			},
			remark: "DE",
			want:   "vless://" + testID + "@1.2.3.4:443?type=ws&security=tls&sni=example.com#DE",
		},
		{
			name: "tls without sni",
			ep: func() servers.Endpoint {
				ep := realityEndpoint()
				ep.Security, ep.SNI = "tls", ""
				return ep
			},
			want: "vless://" + testID + "@1.2.3.4:443?type=tcp&security=tls#1.2.3.4:443",
		},
		{
			name: "none",
			ep: func() servers.Endpoint {
				ep := realityEndpoint()
				ep.Security, ep.Port = "none", 8080
				return ep
			},
			want: "vless://" + testID + "@1.2.3.4:8080?type=tcp&security=none#1.2.3.4:8080",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Build(testID, tc.ep(), tc.remark)
			if got != tc.want {
				t.Fatalf("link=%q\nwant=%q", got, tc.want)
			}
		})
	}
}

func TestBuildFirstShortIDOnly(t *testing.T) {
	link := Build(testID, realityEndpoint(), "")
	if !strings.Contains(link, "sid=abc") {
		t.Fatalf("link %q lacks sid=abc", link)
	}
	if strings.Contains(link, "def") {
		t.Fatalf("link %q carries a second short id", link)
	}
}

func TestBuildIsPure(t *testing.T) {
	ep := realityEndpoint()
	a := Build(testID, ep, "NL-alice")
	b := Build(testID, ep, "NL-alice")
	if a != b {
		t.Fatalf("outputs differ:\n%s\n%s", a, b)
	}

	c := Build(testID, ep, "NL-bob")
	ia, ic := strings.IndexByte(a, '#'), strings.IndexByte(c, '#')
	if a[:ia] != c[:ic] {
		t.Fatalf("remark changed more than the fragment:\n%s\n%s", a, c)
	}
	if a[ia:] == c[ic:] {
		t.Fatalf("fragment did not change")
	}
}

func TestBuildEscapesValues(t *testing.T) {
	ep := realityEndpoint()
	ep.SNI = "a b&c"
	ep.Flow = ""
	link := Build(testID, ep, "My Server")
	if !strings.Contains(link, "sni=a+b%26c") {
		t.Fatalf("sni not query-escaped: %s", link)
	}
	if !strings.HasSuffix(link, "#My%20Server") {
		t.Fatalf("fragment not escaped: %s", link)
	}
}

func TestBuildIPv6(t *testing.T) {
	ep := realityEndpoint()
	ep.Address = "2001:db8::1"
	link := Build(testID, ep, "v6")
	if !strings.HasPrefix(link, "vless://"+testID+"@[2001:db8::1]:443?") {
		t.Fatalf("link=%s", link)
	}
}

func TestParseRoundTrip(t *testing.T) {
	ep := realityEndpoint()
	link := Build(testID, ep, "NL-alice@example.com")

	got, err := Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Link{
		CredentialID: testID,
		Address:      "1.2.3.4",
		Port:         443,
		Network:      "tcp",
		Security:     "reality",
		SNI:          "example.com",
		PublicKey:    "PK",
		ShortID:      "abc",
		Fingerprint:  "chrome",
		Flow:         "xtls-rprx-vision",
		Remark:       "NL-alice@example.com",
	}
	if *got != want {
		t.Fatalf("parsed=%+v, want %+v", *got, want)
	}
}

func TestParseErrors(t *testing.T) {
	for _, raw := range []string{
		"",
		"vmess://abc",
		"vless://1.2.3.4:443",
		"vless://id@:443",
		"vless://id@1.2.3.4",
		"vless://id@1.2.3.4:port",
	} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("Parse(%q): expected error", raw)
		}
	}
}
