package geoip

import "testing"

func TestFlagEmoji(t *testing.T) {
	tests := []struct{ code, want string }{
		{"NL", "🇳🇱"},
		{"de", "🇩🇪"},
		{"", "🌐"},
		{"XXX", "🌐"},
		{"1A", "🌐"},
	}
	for _, tc := range tests {
		if got := FlagEmoji(tc.code); got != tc.want {
			t.Fatalf("FlagEmoji(%q)=%q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestCountryWithoutDatabase(t *testing.T) {
	if err := Init(""); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := Country("1.2.3.4"); got != "" {
		t.Fatalf("Country=%q, want empty without a database", got)
	}
}

func TestInitMissingFile(t *testing.T) {
	if err := Init("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Fatalf("expected error for missing database")
	}
}

func TestCountryHostNameDoesNotHoldReader(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = Country("host.invalid")
		}
	}()
	for i := 0; i < 50; i++ {
		Close()
	}
	<-done
	if got := Country("host.invalid"); got != "" {
		t.Fatalf("Country=%q, want empty", got)
	}
}
