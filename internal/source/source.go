package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/appetiteclub/kitchenboard/pkg/event"
)

var (
	ErrPushStale       = errors.New("push source disconnected for too long")
	ErrUnknownStrategy = errors.New("unknown source strategy")
	ErrNoSource        = errors.New("source not configured")
)

// Sink receives the events of one source run.
type Sink interface {
	Emit(ctx context.Context, evt event.KitchenSourceEvent) error
	// Degraded reports a transport failure (err != nil) or recovery (err == nil).
	Degraded(err error)
}

// Source turns an upstream transport into KitchenSourceEvent values. Run
// blocks until ctx is done or the source gives up, and emits a BOARD_SNAPSHOT
// before any incremental event.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

// Strategy selects which source feeds the board.
type Strategy string

const (
	StrategyPush Strategy = "push"
	StrategyPoll Strategy = "poll"
	// StrategyAuto prefers push and polls while push is down.
	StrategyAuto Strategy = "auto"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyPush, StrategyPoll, StrategyAuto:
		return st, nil
	case "":
		return StrategyAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}
