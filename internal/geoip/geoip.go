package geoip

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"xraybot/internal/logger"

	"github.com/oschwald/geoip2-golang"
)

var (
	countryReader *geoip2.Reader
	mu            sync.RWMutex
)

// Init loads the country MMDB. An empty path leaves lookups disabled.
func Init(countryPath string) error {
	if countryPath == "" {
		return nil
	}
	r, err := geoip2.Open(countryPath)
	if err != nil {
		return fmt.Errorf("failed to open Country DB at %s: %w", countryPath, err)
	}
	mu.Lock()
	countryReader = r
	mu.Unlock()
	return nil
}

// Country returns the ISO code for an IP or host name, "" when unknown.
// Host names are resolved first.
func Country(host string) string {
	if !enabled() {
		return ""
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			logger.Log.Debugf("geoip: cannot resolve %s: %v", host, err)
			return ""
		}
		ip = ips[0]
	}

	mu.RLock()
	defer mu.RUnlock()
	if countryReader == nil {
		return ""
	}
	c, err := countryReader.Country(ip)
	if err != nil {
		return ""
	}
	return c.Country.IsoCode
}

func enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return countryReader != nil
}

// FlagEmoji turns a two-letter country code into its regional indicator pair.
func FlagEmoji(countryCode string) string {
	if len(countryCode) != 2 {
		return "🌐"
	}
	countryCode = strings.ToUpper(countryCode)
	if countryCode[0] < 'A' || countryCode[0] > 'Z' || countryCode[1] < 'A' || countryCode[1] > 'Z' {
		return "🌐"
	}
	return string(rune(countryCode[0])+127397) + string(rune(countryCode[1])+127397)
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if countryReader != nil {
		countryReader.Close()
		countryReader = nil
	}
}
