package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/rank-tracker/internal/repository"
	"github.com/user/rank-tracker/pkg/metrics"
	"go.uber.org/zap"
)

// TriggerDecision is the gate's explicit answer: either accepted, or
// rejected with the remaining lock time. There is no silent outcome.
type TriggerDecision struct {
	Accepted  bool
	Remaining time.Duration
}

// Gate enforces a minimum interval between accepted manual refresh triggers
// per operator. It is layered: a local cache of last-trigger times rejects
// obviously-futile requests without a round trip, while the store behind
// CooldownRepository holds the authoritative timestamp. On any disagreement
// the local cache adopts the server's value.
type Gate struct {
	repo   repository.CooldownRepository
	window time.Duration
	logger *zap.Logger

	now func() time.Time

	mu          sync.Mutex
	lastTrigger map[string]time.Time
}

// NewGate creates a cooldown gate with the given window.
func NewGate(repo repository.CooldownRepository, window time.Duration, logger *zap.Logger) *Gate {
	return &Gate{
		repo:        repo,
		window:      window,
		logger:      logger,
		now:         time.Now,
		lastTrigger: make(map[string]time.Time),
	}
}

// Trigger attempts to start a refresh for the operator. The local cache is
// checked first; if it still shows an open window the gate optimistically
// marks the operator locked, then asks the authoritative store. The server's
// answer always wins: an acceptance confirms the optimistic mark, a
// rejection rewrites the local state to the server-reported remaining time.
func (g *Gate) Trigger(ctx context.Context, username string) (TriggerDecision, error) {
	now := g.now()

	g.mu.Lock()
	if last, ok := g.lastTrigger[username]; ok {
		if remaining := g.window - now.Sub(last); remaining > 0 {
			g.mu.Unlock()
			metrics.CooldownRejections.Inc()
			return TriggerDecision{Accepted: false, Remaining: remaining}, nil
		}
	}
	g.lastTrigger[username] = now
	g.mu.Unlock()

	accepted, remaining, err := g.repo.Acquire(ctx, username, g.window)
	if err != nil {
		// Roll the optimistic mark back so a store outage cannot leave the
		// operator locked out locally.
		g.mu.Lock()
		delete(g.lastTrigger, username)
		g.mu.Unlock()
		return TriggerDecision{}, fmt.Errorf("cooldown acquire failed: %w", err)
	}

	g.mu.Lock()
	if accepted {
		// The window started now; confirm the optimistic mark.
		g.lastTrigger[username] = now
	} else {
		// Another session won the race; adopt the server's remaining time
		// instead of trusting the optimistic value.
		g.lastTrigger[username] = now.Add(remaining - g.window)
	}
	g.mu.Unlock()

	if !accepted {
		metrics.CooldownRejections.Inc()
		g.logger.Info("manual trigger rejected by cooldown",
			zap.String("username", username),
			zap.Duration("remaining", remaining),
		)
		return TriggerDecision{Accepted: false, Remaining: remaining}, nil
	}
	return TriggerDecision{Accepted: true}, nil
}

// Remaining reports the authoritative remaining lock time for the operator
// and refreshes the local cache from it.
func (g *Gate) Remaining(ctx context.Context, username string) (time.Duration, error) {
	remaining, err := g.repo.Remaining(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("cooldown query failed: %w", err)
	}
	g.mu.Lock()
	if remaining <= 0 {
		delete(g.lastTrigger, username)
	} else {
		// Back-date the trigger time so the locally computed remaining time
		// equals the server's.
		g.lastTrigger[username] = g.now().Add(remaining - g.window)
	}
	g.mu.Unlock()
	return remaining, nil
}
