package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/banner"
)

// bannerField is one labelled row of the startup banner
type bannerField struct {
	Label string
	Value string
}

// screenerFields describes what the screener will do with this config:
// how many symbols, against which thresholds, at what upstream pace.
func screenerFields(config *Config, universeSize int) []bannerField {
	av := config.Clients.AlphaVantage
	c := config.Screener.Criteria

	provider := "alphavantage"
	if config.Clients.Alpaca.Enabled {
		provider += " + alpaca fallback"
	}

	symbols := fmt.Sprintf("%d", universeSize)
	if n := len(config.Screener.Symbols); n > 0 {
		symbols = fmt.Sprintf("%d of %d", n, universeSize)
	}

	criteria := fmt.Sprintf("price < $%.2f, |chg| >= %g%%, vol > %s", c.MaxPrice, c.MinAbsChangePercent, compactCount(c.MinVolume))
	if c.MinGapUp > 0 {
		criteria += fmt.Sprintf(", gap >= %g%%", c.MinGapUp)
	}
	if c.MinRelativeVolume > 0 {
		criteria += fmt.Sprintf(", rvol >= %g", c.MinRelativeVolume)
	}

	pace := fmt.Sprintf("1 call / %s", av.GetMinInterval())
	if av.BatchSize > 0 && av.GetBatchPause() > 0 {
		pace += fmt.Sprintf(", +%s every %d", av.GetBatchPause(), av.BatchSize)
	}

	return []bannerField{
		{"Provider", provider},
		{"Universe", symbols + " symbols"},
		{"Criteria", criteria},
		{"Pace", pace},
		{"Screen every", refreshLabel(config.Screener.GetRefreshInterval())},
		{"News every", refreshLabel(config.News.GetRefreshInterval())},
	}
}

func refreshLabel(d time.Duration) string {
	if d <= 0 {
		return "off"
	}
	return d.String()
}

func compactCount(n int64) string {
	switch {
	case n >= 1_000_000 && n%100_000 == 0:
		return fmt.Sprintf("%gM", float64(n)/1_000_000)
	case n >= 1_000 && n%100 == 0:
		return fmt.Sprintf("%gK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config, logger *Logger, universeSize int) {
	info := GetVersionInfo()
	version := info.Version
	build := info.Build
	commit := info.Commit
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
	fields := screenerFields(config, universeSize)

	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 70
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		`  .d8888b.  888     888 8888888b.   .d8888b.  8888888888`,
		` d88P  Y88b 888     888 888   Y88b d88P  Y88b 888`,
		` Y88b.      888     888 888    888 888    888 888`,
		`  "Y888b.   888     888 888   d88P 888        8888888`,
		`     "Y88b. 888     888 8888888P"  888  88888 888`,
		`       "888 888     888 888 T88b   888    888 888`,
		` Y88b  d88P Y88b. .d88P 888  T88b  Y88b  d88P 888`,
		`  "Y8888P"   "Y88888P"  888   T88b  "Y8888P88 8888888888`,
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", hr)
	fmt.Fprintf(os.Stderr, "\n")
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s  Momentum Screening & News Catalysts%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", hr)
	fmt.Fprintf(os.Stderr, "\n")

	kvPad := 16
	kvLines := append([]bannerField{
		{"Version", fmt.Sprintf("%s (build %s, commit %s)", version, build, commit)},
		{"Environment", config.Environment},
		{"Service URL", serviceURL},
	}, fields...)
	for _, kv := range kvLines {
		fmt.Fprintf(os.Stderr, "%s  %-*s %s%s\n", textColor, kvPad, kv.Label, kv.Value, banner.ColorReset)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", hr)
	fmt.Fprintf(os.Stderr, "\n")

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("commit", commit).
		Str("environment", config.Environment).
		Str("service_url", serviceURL).
		Int("universe", universeSize).
		Str("criteria", fields[2].Value).
		Str("pace", fields[3].Value).
		Msg("Application started")
}

// PrintShutdownBanner displays the application shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 42
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", hr)
	fmt.Fprintf(os.Stderr, "%s  SURGE: SHUTTING DOWN%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n", hr)
	fmt.Fprintf(os.Stderr, "\n")

	logger.Info().Msg("Application shutting down")
}
