package config

import (
	"testing"
	"time"

	kit "replywatch/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	root := New()
	src := root.Prefix("SOURCE_")
	if got := src.key("URL"); got != "SOURCE_URL" {
		t.Fatalf("key() = %q, want %q", got, "SOURCE_URL")
	}
	nested := src.Prefix("HTTP_")
	if got := nested.key("TIMEOUT"); got != "SOURCE_HTTP_TIMEOUT" {
		t.Fatalf("nested key() = %q, want %q", got, "SOURCE_HTTP_TIMEOUT")
	}
}

func TestMustURL(t *testing.T) {
	c := New().Prefix("SRC_")
	t.Setenv("SRC_URL", "https://example.test/wp-json/wp/v2")

	u := c.MustURL("URL")
	if u.Scheme != "https" || u.Host != "example.test" {
		t.Fatalf("MustURL parsed %q, want scheme https host example.test", u)
	}
	if got := u.String(); got != "https://example.test/wp-json/wp/v2" {
		t.Fatalf("MustURL.String() = %q", got)
	}

	kit.MustPanic(t, func() { _ = c.MustURL("MISSING") })
	t.Setenv("SRC_RELATIVE", "/not/absolute")
	kit.MustPanic(t, func() { _ = c.MustURL("RELATIVE") })
}

func TestMayLocation(t *testing.T) {
	c := New().Prefix("SRC_")

	if got := c.MayLocation("TIMEZONE", "UTC"); got != time.UTC {
		t.Fatalf("MayLocation default = %v, want UTC", got)
	}

	t.Setenv("SRC_TIMEZONE", "Europe/Berlin")
	loc := c.MayLocation("TIMEZONE", "UTC")
	if loc.String() != "Europe/Berlin" {
		t.Fatalf("MayLocation = %v, want Europe/Berlin", loc)
	}

	t.Setenv("SRC_TIMEZONE", "Not/AZone")
	kit.MustPanic(t, func() { _ = c.MayLocation("TIMEZONE", "UTC") })
}
