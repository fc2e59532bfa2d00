package servers

import (
	"encoding/json"
	"fmt"

	"github.com/xtls/xray-core/infra/conf"
)

// Outbound converts an endpoint into the client-side Xray outbound a share
// link for it would produce.
func Outbound(credentialID string, ep Endpoint) *conf.OutboundDetourConfig {
	settings := buildVLESS(credentialID, ep)
	return &conf.OutboundDetourConfig{
		Tag:           "proxy-" + ep.Name,
		Protocol:      "vless",
		Settings:      &settings,
		StreamSetting: buildStreamSettings(ep),
	}
}

// Check builds the outbound through xray-core, which rejects bad public keys,
// short ids and unknown transports the same way a client would.
func Check(credentialID string, ep Endpoint) error {
	if _, err := Outbound(credentialID, ep).Build(); err != nil {
		return fmt.Errorf("endpoint %s: %w", ep.Name, err)
	}
	return nil
}

func buildVLESS(credentialID string, ep Endpoint) json.RawMessage {
	user := map[string]interface{}{
		"id":         credentialID,
		"encryption": "none",
	}
	if ep.Flow != "" {
		user["flow"] = ep.Flow
	}
	return jsonRaw(map[string]interface{}{
		"vnext": []interface{}{
			map[string]interface{}{
				"address": ep.Address,
				"port":    ep.Port,
				"users":   []interface{}{user},
			},
		},
	})
}

func buildStreamSettings(ep Endpoint) *conf.StreamConfig {
	network := ep.Network
	if network == "" {
		network = "tcp"
	}

	sc := &conf.StreamConfig{
		Network:  (*conf.TransportProtocol)(&network),
		Security: ep.Security,
	}

	switch ep.Security {
	case "tls":
		sc.TLSSettings = &conf.TLSConfig{
			ServerName:  ep.SNI,
			Fingerprint: ep.Fingerprint,
		}
	case "reality":
		shortID := ""
		if len(ep.ShortIDs) > 0 {
			shortID = ep.ShortIDs[0]
		}
		sc.REALITYSettings = &conf.REALITYConfig{
			Fingerprint: ep.Fingerprint,
			ServerName:  ep.SNI,
			PublicKey:   ep.PublicKey,
			ShortId:     shortID,
		}
	}

	return sc
}

func jsonRaw(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return json.RawMessage(b)
}
