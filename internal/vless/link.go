package vless

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"xraybot/internal/servers"
	"xraybot/internal/xray"
)

const Scheme = "vless"

// Build renders a share link for credentialID on ep.
// Query parameters are written in a fixed order so the same inputs always
// produce the same bytes. An empty remark falls back to "address:port".
func Build(credentialID string, ep servers.Endpoint, remark string) string {
	q := &orderedQuery{}
	q.add("type", ep.Network)
	q.add("security", ep.Security)

	switch ep.Security {
	case xray.SecurityReality:
		q.addNonEmpty("sni", ep.SNI)
		q.addNonEmpty("pbk", ep.PublicKey)
		if len(ep.ShortIDs) > 0 {
			q.add("sid", ep.ShortIDs[0])
		}
		q.addNonEmpty("fp", ep.Fingerprint)
		q.addNonEmpty("flow", ep.Flow)
	case xray.SecurityTLS:
		q.addNonEmpty("sni", ep.SNI)
	}

	hostPort := net.JoinHostPort(ep.Address, strconv.Itoa(ep.Port))
	if remark == "" {
		remark = hostPort
	}

	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString("://")
	b.WriteString(url.User(credentialID).String())
	b.WriteString("@")
	b.WriteString(hostPort)
	b.WriteString("?")
	b.WriteString(q.String())
	b.WriteString("#")
	b.WriteString((&url.URL{Fragment: remark}).EscapedFragment())
	return b.String()
}

// orderedQuery keeps insertion order, unlike url.Values.Encode which sorts.
type orderedQuery struct {
	parts []string
}

func (q *orderedQuery) add(key, value string) {
	q.parts = append(q.parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
}

func (q *orderedQuery) addNonEmpty(key, value string) {
	if value != "" {
		q.add(key, value)
	}
}

func (q *orderedQuery) String() string {
	return strings.Join(q.parts, "&")
}
