// Package dailyprompt shows each signed-in user one check-in question a day.
// The first page view of the day creates the pending record; later views
// reuse it until the user dismisses or answers it.
package dailyprompt

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	"github.com/bloomcycle/bloom/internal/app/prompts"
	checkinstore "github.com/bloomcycle/bloom/internal/app/store/checkins"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Card is what the layout needs to render the prompt.
type Card struct {
	Show   bool
	Date   string
	Prompt string
}

type ctxKey struct{}

// Loader attaches today's Card to page requests.
type Loader struct {
	checkIns *checkinstore.Store
	bank     *prompts.Bank
	clock    calendar.Clock
	logger   *zap.Logger
}

func New(checkIns *checkinstore.Store, bank *prompts.Bank, clock calendar.Clock, logger *zap.Logger) *Loader {
	return &Loader{checkIns: checkIns, bank: bank, clock: clock, logger: logger}
}

// Today returns the loader's current ISO date.
func (l *Loader) Today() string {
	return calendar.FormatDate(l.clock.Now())
}

// Bank returns the prompt bank used for new and refreshed prompts.
func (l *Loader) Bank() *prompts.Bank { return l.bank }

// Middleware runs on full page loads only: fetch and HTMX calls made by the
// card itself must not create or re-read the record.
func (l *Loader) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := auth.CurrentUser(r)
		if !ok || !u.Onboarded || !isPageLoad(r) {
			next.ServeHTTP(w, r)
			return
		}
		card, err := l.Load(r.Context(), u.UserID())
		if err != nil {
			l.logger.Warn("daily prompt unavailable", zap.Error(err), zap.String("user_id", u.ID))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, card)))
	})
}

// Load returns today's card for the user, creating the pending record on
// the first call of the day.
func (l *Loader) Load(ctx context.Context, uid primitive.ObjectID) (Card, error) {
	today := l.Today()

	c, err := l.checkIns.Get(ctx, uid, today)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c, err = l.checkIns.GetOrCreatePending(ctx, uid, today, l.bank.Next(ctx, ""))
	}
	if err != nil {
		return Card{}, err
	}
	return Card{Show: c.IsActionable(), Date: c.Date, Prompt: c.PromptText}, nil
}

// From returns the card attached by Middleware.
func From(r *http.Request) (Card, bool) {
	c, ok := r.Context().Value(ctxKey{}).(Card)
	return c, ok
}

// WithCard attaches a card to the request, for tests.
func WithCard(r *http.Request, c Card) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, c))
}

func isPageLoad(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if r.Header.Get("HX-Request") == "true" || r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return false
	}
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/assets/") {
		return false
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}
