// Process-wide constants and environment-backed defaults.
package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultTimeout = 30 * time.Second
	defaultMaxSize = 1024 * 1024 // 1MB
	defaultUA      = "webfetch/1.0"

	// fetchChunkSize is the read granularity for streaming response
	// bodies. The size cap is checked after every chunk.
	fetchChunkSize = 8 * 1024

	// outputTruncateSize caps text-mode output. JSON-mode output is
	// never truncated.
	outputTruncateSize = 50 * 1024

	// htmlPreviewBytes bounds the raw-HTML preview emitted when the
	// HTML extraction capability is unavailable.
	htmlPreviewBytes = 1000

	resultDividerWidth = 70
)

// textContentTypes are content-type prefixes rendered as text. Anything
// else (unless it starts with "text/") is treated as binary.
var textContentTypes = []string{
	"text/html",
	"text/plain",
	"text/xml",
	"application/xml",
	"application/json",
	"application/javascript",
	"text/javascript",
	"application/x-javascript",
	"text/css",
}

// contentTypeIsText reports whether a main content-type token should be
// decoded and rendered rather than treated as opaque bytes.
func contentTypeIsText(contentType string) bool {
	for _, ct := range textContentTypes {
		if strings.HasPrefix(contentType, ct) {
			return true
		}
	}
	return strings.HasPrefix(contentType, "text/")
}

// envDefaults holds flag defaults resolvable from the environment, so
// scripted callers can set WEBFETCH_TIMEOUT etc. instead of repeating
// flags on every invocation.
type envDefaults struct {
	TimeoutSeconds int
	MaxSize        string
	UserAgent      string
	Proxy          string
}

// loadEnvDefaults reads WEBFETCH_* environment variables via Viper and
// falls back to the built-in defaults.
func loadEnvDefaults() envDefaults {
	v := viper.New()
	v.SetEnvPrefix("WEBFETCH")
	v.AutomaticEnv()
	v.SetDefault("timeout", int(defaultTimeout/time.Second))
	v.SetDefault("max_size", strconv.Itoa(defaultMaxSize))
	v.SetDefault("user_agent", defaultUA)
	v.SetDefault("proxy", "")

	return envDefaults{
		TimeoutSeconds: v.GetInt("timeout"),
		MaxSize:        v.GetString("max_size"),
		UserAgent:      v.GetString("user_agent"),
		Proxy:          v.GetString("proxy"),
	}
}
