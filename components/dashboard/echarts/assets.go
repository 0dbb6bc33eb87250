package echarts

import (
	"os"
	"strings"
)

const (
	// DefaultAssetsHost is where the ECharts runtime and themes load from.
	DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
	// envAssetsHost overrides the default assets host (CDN or self-hosted bucket).
	envAssetsHost = "QUERYDASH_ECHARTS_ASSETS"
)

// AssetsHostFromEnv returns the assets host, respecting QUERYDASH_ECHARTS_ASSETS.
func AssetsHostFromEnv() string {
	if host := strings.TrimSpace(os.Getenv(envAssetsHost)); host != "" {
		return ensureTrailingSlash(host)
	}
	return DefaultAssetsHost
}

func ensureTrailingSlash(value string) string {
	if value == "" || strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}
