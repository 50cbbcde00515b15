// Package service implements the activity board: it loads activities,
// rebuilds the view state, and runs the signup and unregister actions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
	"github.com/Shivanand-hulikatti/activity-board/internal/repository"
	"github.com/go-playground/validator/v10"
)

// User-facing texts.
const (
	LoadFailureText        = "Failed to load activities. Please try again later."
	NoParticipantsText     = "No participants yet"
	InvalidSignupText      = "Please enter an email and choose an activity."
	SignupRejectedText     = "An error occurred"
	SignupFailedText       = "Failed to sign up. Please try again."
	UnregisterRejectedText = "Could not remove participant"
	UnregisterFailedText   = "Failed to remove participant."
)

// DefaultMessageTTL is how long a banner stays visible.
const DefaultMessageTTL = 5 * time.Second

// ErrInvalidSignup is returned when the signup input fails validation.
var ErrInvalidSignup = errors.New("invalid signup input")

// ActivityStore is the backend the board reads from and writes to.
type ActivityStore interface {
	List(ctx context.Context) ([]model.Activity, error)
	Signup(ctx context.Context, activity, email string) (*model.MessageResponse, error)
	Unregister(ctx context.Context, activity, email string) (*model.MessageResponse, error)
}

// Option configures a Board.
type Option func(*Board)

// WithMessageTTL sets how long banners stay visible.
func WithMessageTTL(d time.Duration) Option {
	return func(b *Board) {
		if d > 0 {
			b.ttl = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) { b.log = l }
}

// Board is the activity board controller. It holds only the view shared by
// every visitor; banners and form input belong to the ActionResult of the
// request that produced them. It is safe for concurrent use; the lock is
// never held across calls to the store.
type Board struct {
	store    ActivityStore
	validate *validator.Validate
	log      *slog.Logger
	ttl      time.Duration

	mu     sync.Mutex
	view   model.ViewState
	issued uint64 // sequence of the latest dispatched refresh
}

// NewBoard constructs a Board backed by store.
func NewBoard(store ActivityStore, opts ...Option) *Board {
	b := &Board{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      slog.Default(),
		ttl:      DefaultMessageTTL,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// View returns a snapshot of the current view state.
func (b *Board) View() model.ViewState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view.Clone()
}

// MessageTTL is how long a rendered banner stays on screen.
func (b *Board) MessageTTL() time.Duration {
	return b.ttl
}

// Refresh fetches activities and rebuilds the cards and selector options.
// On failure the cards are replaced by LoadFailureText and the options are
// left as they were. A response is dropped if a newer refresh was dispatched
// while it was in flight.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.issued++
	seq := b.issued
	b.mu.Unlock()

	activities, err := b.store.List(ctx)

	var cards []model.ActivityCard
	var options []string
	if err == nil {
		cards, options = b.buildCards(activities)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq != b.issued {
		b.log.DebugContext(ctx, "dropping stale refresh", "seq", seq, "latest", b.issued)
		if err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		return nil
	}
	if err != nil {
		b.log.ErrorContext(ctx, "error fetching activities", "error", err)
		b.view.Cards = nil
		b.view.LoadFailure = LoadFailureText
		return fmt.Errorf("refresh: %w", err)
	}
	b.view.Cards = cards
	b.view.Options = options
	b.view.LoadFailure = ""
	b.view.Loaded = true
	return nil
}

// Signup registers email for activity. On success the returned form is empty
// and the board is refreshed; on failure the form echoes the input. Every
// outcome carries a banner.
func (b *Board) Signup(ctx context.Context, email, activity string) (model.ActionResult, error) {
	form := model.SignupForm{Email: strings.TrimSpace(email), Activity: activity}

	if err := b.checkSignup(form); err != nil {
		return model.ActionResult{Banner: errorBanner(InvalidSignupText), Form: form}, err
	}

	resp, err := b.store.Signup(ctx, form.Activity, form.Email)
	if err != nil {
		return model.ActionResult{
			Banner: b.actionErrorBanner(ctx, err, SignupRejectedText, SignupFailedText),
			Form:   form,
		}, fmt.Errorf("signup: %w", err)
	}

	// A failed refresh is already reflected in the view.
	_ = b.Refresh(ctx)
	return model.ActionResult{Banner: successBanner(resp.Message)}, nil
}

// Unregister removes email from activity. An empty email is a no-op and
// yields an empty result.
func (b *Board) Unregister(ctx context.Context, activity, email string) (model.ActionResult, error) {
	if email == "" {
		return model.ActionResult{}, nil
	}

	resp, err := b.store.Unregister(ctx, activity, email)
	if err != nil {
		return model.ActionResult{
			Banner: b.actionErrorBanner(ctx, err, UnregisterRejectedText, UnregisterFailedText),
		}, fmt.Errorf("unregister: %w", err)
	}

	_ = b.Refresh(ctx)
	return model.ActionResult{Banner: successBanner(resp.Message)}, nil
}

func (b *Board) checkSignup(form model.SignupForm) error {
	if err := b.validate.Struct(form); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignup, err)
	}
	b.mu.Lock()
	known := slices.Contains(b.view.Options, form.Activity)
	b.mu.Unlock()
	if !known {
		return fmt.Errorf("%w: unknown activity %q", ErrInvalidSignup, form.Activity)
	}
	return nil
}

func (b *Board) actionErrorBanner(ctx context.Context, err error, rejectedFallback, failedText string) model.Banner {
	var rejected *repository.RejectedError
	if errors.As(err, &rejected) {
		if rejected.Detail == "" {
			return errorBanner(rejectedFallback)
		}
		return errorBanner(rejected.Detail)
	}
	b.log.ErrorContext(ctx, "action failed", "error", err)
	return errorBanner(failedText)
}

func successBanner(text string) model.Banner {
	return model.Banner{Text: text, Kind: model.BannerSuccess, Visible: true}
}

func errorBanner(text string) model.Banner {
	return model.Banner{Text: text, Kind: model.BannerError, Visible: true}
}

func (b *Board) buildCards(activities []model.Activity) ([]model.ActivityCard, []string) {
	cards := make([]model.ActivityCard, 0, len(activities))
	options := make([]string, 0, len(activities))
	for _, a := range activities {
		spots := a.SpotsLeft()
		card := model.ActivityCard{
			Name:         a.Name,
			Description:  a.Description,
			Schedule:     a.Schedule,
			SpotsLeft:    spots,
			Participants: make([]model.ParticipantRow, 0, len(a.Participants)),
		}
		if spots < 0 {
			b.log.Warn("activity over capacity", "activity", a.Name, "max_participants", a.MaxParticipants, "participants", len(a.Participants))
			card.SpotsLeft = 0
			card.Overbooked = true
		}
		for _, p := range a.Participants {
			display := p.DisplayName()
			card.Participants = append(card.Participants, model.ParticipantRow{
				Initials:    Initials(display),
				DisplayName: display,
				RemoveKey:   p.RemoveKey(),
			})
		}
		cards = append(cards, card)
		options = append(options, a.Name)
	}
	return cards, options
}
