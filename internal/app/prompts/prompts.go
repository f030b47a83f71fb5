// Package prompts holds the daily check-in question bank.
package prompts

import (
	"context"
	"math/rand"
	"sync"

	"go.uber.org/zap"
)

// Defaults is the built-in bank, seeded into the prompts collection on startup.
func Defaults() []string {
	return []string{
		"What's one thing you're looking forward to today?",
		"How are you feeling going into today?",
		"What's something you accomplished yesterday that you're proud of?",
		"What's your main focus for today?",
		"Is there anything on your mind that you'd like to clear before starting?",
		"What would make today feel like a success?",
		"How's your energy level right now?",
		"What's one small win you can aim for today?",
		"Is there anything you need support with today?",
		"What intention do you want to set for today?",
		"How did yesterday go, and what would you do differently?",
		"What are you grateful for this morning?",
		"What's one challenge you're anticipating today?",
		"How are you taking care of yourself today?",
		"What's something you've been putting off that you could tackle today?",
	}
}

// Pick returns a random prompt from pool other than exclude. When every
// prompt equals exclude, the whole pool is used.
func Pick(pool []string, exclude string, rnd *rand.Rand) string {
	if len(pool) == 0 {
		return ""
	}
	candidates := make([]string, 0, len(pool))
	for _, p := range pool {
		if p != exclude {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = pool
	}
	return candidates[rnd.Intn(len(candidates))]
}

// Source lists the active prompts.
type Source interface {
	ListActive(ctx context.Context) ([]string, error)
}

// Bank picks prompts from a Source, falling back to Defaults when the source
// is empty or failing.
type Bank struct {
	src    Source
	logger *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBank creates a Bank. A nil src always uses Defaults.
func NewBank(src Source, seed int64, logger *zap.Logger) *Bank {
	return &Bank{src: src, logger: logger, rnd: rand.New(rand.NewSource(seed))}
}

func (b *Bank) pool(ctx context.Context) []string {
	if b.src == nil {
		return Defaults()
	}
	list, err := b.src.ListActive(ctx)
	if err != nil {
		b.logger.Warn("load prompts failed, using defaults", zap.Error(err))
		return Defaults()
	}
	if len(list) == 0 {
		return Defaults()
	}
	return list
}

// Next returns a prompt different from current when possible.
func (b *Bank) Next(ctx context.Context, current string) string {
	pool := b.pool(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	return Pick(pool, current, b.rnd)
}
