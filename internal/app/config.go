package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/internal/source"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// Settings is the typed view of the service configuration.
type Settings struct {
	LogLevel string
	Strategy source.Strategy

	PollInterval   time.Duration
	PollTimeout    time.Duration
	PushStaleAfter time.Duration

	NATSURL       string
	NATSTopic     string
	StreamEnabled bool
	StreamName    string
	ReplayLimit   int

	KitchenURL string
	Session    source.Session

	Retention       time.Duration
	HighlightWindow time.Duration
}

// ConfigSource is the part of *apt.Config settings are read from.
type ConfigSource interface {
	GetStringOrDef(key, def string) string
}

// LoadSettings reads and validates the configuration, applying defaults.
func LoadSettings(config ConfigSource) (Settings, error) {
	if config == nil {
		config = apt.NewConfig()
	}

	var s Settings
	var err error

	s.LogLevel = config.GetStringOrDef("log.level", "info")

	if s.Strategy, err = source.ParseStrategy(config.GetStringOrDef("source.strategy", "auto")); err != nil {
		return s, err
	}

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"poll.interval", "5s", &s.PollInterval},
		{"poll.timeout", "", &s.PollTimeout},
		{"push.stale_after", "30s", &s.PushStaleAfter},
		{"board.retention", "2m", &s.Retention},
		{"board.highlight", "10s", &s.HighlightWindow},
	}
	for _, d := range durations {
		if *d.dest, err = parseDuration(config.GetStringOrDef(d.key, d.def)); err != nil {
			return s, fmt.Errorf("%s: %w", d.key, err)
		}
	}
	if s.PollInterval <= 0 {
		return s, fmt.Errorf("poll.interval must be positive")
	}

	s.NATSURL = config.GetStringOrDef("nats.url", "nats://localhost:4222")
	s.NATSTopic = config.GetStringOrDef("nats.topic", event.KitchenBoardTopic)
	s.StreamEnabled = parseBool(config.GetStringOrDef("nats.stream.enabled", "false"))
	s.StreamName = config.GetStringOrDef("nats.stream.name", "KITCHEN_BOARD")

	if s.ReplayLimit, err = strconv.Atoi(config.GetStringOrDef("nats.stream.replay_limit", "1000")); err != nil {
		return s, fmt.Errorf("nats.stream.replay_limit: %w", err)
	}

	s.KitchenURL = config.GetStringOrDef("services.kitchen.url", "")

	token := config.GetStringOrDef("nats.token", "")
	station := config.GetStringOrDef("session.station", "")
	if s.Session, err = source.NewSession(token, station); err != nil {
		return s, fmt.Errorf("session.station: %w", err)
	}

	if s.KitchenURL == "" && !s.StreamEnabled {
		return s, fmt.Errorf("strategy %s needs services.kitchen.url or nats.stream.enabled", s.Strategy)
	}
	return s, nil
}

func parseDuration(v string) (time.Duration, error) {
	if v == "" || v == "0" {
		return 0, nil
	}
	return time.ParseDuration(v)
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
