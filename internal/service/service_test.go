package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
	"github.com/Shivanand-hulikatti/activity-board/internal/repository"
	"github.com/Shivanand-hulikatti/activity-board/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Fakes ────────────────────────────────────────────────────────────────────

type call struct {
	activity string
	email    string
}

type fakeStore struct {
	mu         sync.Mutex
	activities []model.Activity
	listErr    error
	listCalls  int
	listHook   func(n int) ([]model.Activity, error)

	signupResp  *model.MessageResponse
	signupErr   error
	signupCalls []call

	unregisterResp  *model.MessageResponse
	unregisterErr   error
	unregisterCalls []call
}

func (s *fakeStore) List(ctx context.Context) ([]model.Activity, error) {
	s.mu.Lock()
	s.listCalls++
	n := s.listCalls
	hook := s.listHook
	activities, err := s.activities, s.listErr
	s.mu.Unlock()
	if hook != nil {
		return hook(n)
	}
	return activities, err
}

func (s *fakeStore) Signup(ctx context.Context, activity, email string) (*model.MessageResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signupCalls = append(s.signupCalls, call{activity, email})
	return s.signupResp, s.signupErr
}

func (s *fakeStore) Unregister(ctx context.Context, activity, email string) (*model.MessageResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregisterCalls = append(s.unregisterCalls, call{activity, email})
	return s.unregisterResp, s.unregisterErr
}

func (s *fakeStore) lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBoard(store *fakeStore) *service.Board {
	return service.NewBoard(store, service.WithLogger(quietLogger()))
}

func chessClub(participants ...model.Participant) model.Activity {
	return model.Activity{
		Name:            "Chess Club",
		Description:     "Learn strategies and compete in chess tournaments",
		Schedule:        "Fridays, 3:30 PM - 5:00 PM",
		MaxParticipants: 12,
		Participants:    participants,
	}
}

// ─── Refresh ──────────────────────────────────────────────────────────────────

func TestRefreshBuildsCards(t *testing.T) {
	store := &fakeStore{activities: []model.Activity{
		chessClub(
			model.Participant{Name: "Ada Lovelace", Email: "ada@x.com"},
			model.Participant{Raw: "bob"},
			model.Participant{Name: "Nobody"},
		),
		{Name: "Tennis Club", Description: "Tennis", Schedule: "Saturdays", MaxParticipants: 10},
	}}
	b := newBoard(store)

	require.NoError(t, b.Refresh(context.Background()))
	v := b.View()

	assert.True(t, v.Loaded)
	assert.Empty(t, v.LoadFailure)
	assert.Equal(t, []string{"Chess Club", "Tennis Club"}, v.Options)
	require.Len(t, v.Cards, 2)

	chess := v.Cards[0]
	assert.Equal(t, "Chess Club", chess.Name)
	assert.Equal(t, 9, chess.SpotsLeft)
	assert.False(t, chess.Overbooked)
	assert.Equal(t, []model.ParticipantRow{
		{Initials: "AL", DisplayName: "Ada Lovelace", RemoveKey: "ada@x.com"},
		{Initials: "B", DisplayName: "bob", RemoveKey: "bob"},
		{Initials: "N", DisplayName: "Nobody", RemoveKey: ""},
	}, chess.Participants)

	tennis := v.Cards[1]
	assert.Equal(t, 10, tennis.SpotsLeft)
	assert.Empty(t, tennis.Participants)
}

func TestRefreshSpotsLeftMatchesCapacity(t *testing.T) {
	var activities []model.Activity
	for i := 0; i < 5; i++ {
		a := model.Activity{Name: fmt.Sprintf("Club %d", i), MaxParticipants: 10}
		for j := 0; j < i*2; j++ {
			a.Participants = append(a.Participants, model.Participant{Raw: fmt.Sprintf("p%d@x.com", j)})
		}
		activities = append(activities, a)
	}
	b := newBoard(&fakeStore{activities: activities})

	require.NoError(t, b.Refresh(context.Background()))
	for i, card := range b.View().Cards {
		assert.Equal(t, activities[i].MaxParticipants-len(activities[i].Participants), card.SpotsLeft, card.Name)
	}
}

func TestRefreshClampsOverbooked(t *testing.T) {
	a := model.Activity{Name: "Tiny", MaxParticipants: 1, Participants: []model.Participant{{Raw: "a"}, {Raw: "b"}}}
	b := newBoard(&fakeStore{activities: []model.Activity{a}})

	require.NoError(t, b.Refresh(context.Background()))
	card := b.View().Cards[0]
	assert.Equal(t, 0, card.SpotsLeft)
	assert.True(t, card.Overbooked)
}

func TestRefreshFailureReplacesCards(t *testing.T) {
	store := &fakeStore{activities: []model.Activity{chessClub()}}
	b := newBoard(store)
	require.NoError(t, b.Refresh(context.Background()))

	store.mu.Lock()
	store.listErr = repository.ErrUnreachable
	store.mu.Unlock()

	err := b.Refresh(context.Background())
	assert.ErrorIs(t, err, repository.ErrUnreachable)

	v := b.View()
	assert.Equal(t, service.LoadFailureText, v.LoadFailure)
	assert.Empty(t, v.Cards)
	assert.Equal(t, []string{"Chess Club"}, v.Options, "options are left stale")
}

func TestRefreshDropsStaleResponse(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	store := &fakeStore{}
	store.listHook = func(n int) ([]model.Activity, error) {
		if n == 1 {
			close(entered)
			<-release
			return []model.Activity{{Name: "Old Club", MaxParticipants: 1}}, nil
		}
		return []model.Activity{{Name: "New Club", MaxParticipants: 2}}, nil
	}
	b := newBoard(store)

	done := make(chan error, 1)
	go func() { done <- b.Refresh(context.Background()) }()
	<-entered

	require.NoError(t, b.Refresh(context.Background()))
	close(release)
	require.NoError(t, <-done)

	v := b.View()
	assert.Equal(t, []string{"New Club"}, v.Options)
	require.Len(t, v.Cards, 1)
	assert.Equal(t, "New Club", v.Cards[0].Name)
}

func TestStaleRefreshErrorIsWrapped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	store := &fakeStore{}
	store.listHook = func(n int) ([]model.Activity, error) {
		if n == 1 {
			close(entered)
			<-release
			return nil, repository.ErrUnreachable
		}
		return []model.Activity{chessClub()}, nil
	}
	b := newBoard(store)

	done := make(chan error, 1)
	go func() { done <- b.Refresh(context.Background()) }()
	<-entered

	require.NoError(t, b.Refresh(context.Background()))
	close(release)

	err := <-done
	require.ErrorIs(t, err, repository.ErrUnreachable)
	assert.Contains(t, err.Error(), "refresh: ")

	v := b.View()
	assert.Empty(t, v.LoadFailure, "stale failure does not overwrite the newer view")
	assert.Equal(t, []string{"Chess Club"}, v.Options)
}

// ─── Signup ───────────────────────────────────────────────────────────────────

func loadedBoard(t *testing.T, store *fakeStore) *service.Board {
	t.Helper()
	if store.activities == nil {
		store.activities = []model.Activity{chessClub()}
	}
	b := newBoard(store)
	require.NoError(t, b.Refresh(context.Background()))
	return b
}

func TestSignupSuccess(t *testing.T) {
	store := &fakeStore{signupResp: &model.MessageResponse{Message: "Signed up x@y.com for Chess Club"}}
	b := loadedBoard(t, store)

	result, err := b.Signup(context.Background(), " x@y.com ", "Chess Club")
	require.NoError(t, err)

	assert.Equal(t, []call{{"Chess Club", "x@y.com"}}, store.signupCalls)
	assert.Equal(t, 2, store.lists(), "signup re-fetches the list")
	assert.Equal(t, model.ActionResult{
		Banner: model.Banner{Text: "Signed up x@y.com for Chess Club", Kind: model.BannerSuccess, Visible: true},
	}, result, "form is reset")
}

func TestSignupRejected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"with detail", &repository.RejectedError{Status: 400, Detail: "Activity is full"}, "Activity is full"},
		{"without detail", &repository.RejectedError{Status: 400}, service.SignupRejectedText},
		{"unreachable", fmt.Errorf("%w: connection refused", repository.ErrUnreachable), service.SignupFailedText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{signupErr: tt.err}
			b := loadedBoard(t, store)

			result, err := b.Signup(context.Background(), "x@y.com", "Chess Club")
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, store.lists(), "no refresh after a failed signup")

			assert.Equal(t, model.Banner{Text: tt.want, Kind: model.BannerError, Visible: true}, result.Banner)
			assert.Equal(t, model.SignupForm{Email: "x@y.com", Activity: "Chess Club"}, result.Form, "form keeps input")
		})
	}
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		activity string
	}{
		{"empty email", "", "Chess Club"},
		{"blank email", "   ", "Chess Club"},
		{"no activity", "x@y.com", ""},
		{"unknown activity", "x@y.com", "Underwater Basket Weaving"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			b := loadedBoard(t, store)

			result, err := b.Signup(context.Background(), tt.email, tt.activity)
			assert.ErrorIs(t, err, service.ErrInvalidSignup)
			assert.Empty(t, store.signupCalls)

			assert.Equal(t, service.InvalidSignupText, result.Banner.Text)
			assert.Equal(t, model.BannerError, result.Banner.Kind)
		})
	}
}

func TestFailedSignupLeavesSharedViewClean(t *testing.T) {
	store := &fakeStore{signupErr: &repository.RejectedError{Status: 400, Detail: "Invalid email address"}}
	b := loadedBoard(t, store)
	before := b.View()

	_, err := b.Signup(context.Background(), "alice-private", "Chess Club")
	require.Error(t, err)

	assert.Equal(t, before, b.View())
}

// ─── Unregister ───────────────────────────────────────────────────────────────

func TestUnregisterSuccess(t *testing.T) {
	store := &fakeStore{unregisterResp: &model.MessageResponse{Message: "Unregistered x@y.com from Chess Club"}}
	b := loadedBoard(t, store)

	result, err := b.Unregister(context.Background(), "Chess Club", "x@y.com")
	require.NoError(t, err)

	assert.Equal(t, []call{{"Chess Club", "x@y.com"}}, store.unregisterCalls)
	assert.Equal(t, 2, store.lists())
	assert.Equal(t, model.Banner{Text: "Unregistered x@y.com from Chess Club", Kind: model.BannerSuccess, Visible: true}, result.Banner)
}

func TestUnregisterEmptyEmailIsNoop(t *testing.T) {
	store := &fakeStore{}
	b := loadedBoard(t, store)

	result, err := b.Unregister(context.Background(), "Chess Club", "")
	require.NoError(t, err)
	assert.Empty(t, store.unregisterCalls)
	assert.Equal(t, model.ActionResult{}, result)
}

func TestUnregisterErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"with detail", &repository.RejectedError{Status: 404, Detail: "Participant not found in activity"}, "Participant not found in activity"},
		{"without detail", &repository.RejectedError{Status: 404}, service.UnregisterRejectedText},
		{"unreachable", repository.ErrUnreachable, service.UnregisterFailedText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{unregisterErr: tt.err}
			b := loadedBoard(t, store)

			result, err := b.Unregister(context.Background(), "Chess Club", "x@y.com")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err))
			assert.Equal(t, model.Banner{Text: tt.want, Kind: model.BannerError, Visible: true}, result.Banner)
		})
	}
}

func TestMessageTTL(t *testing.T) {
	assert.Equal(t, service.DefaultMessageTTL, newBoard(&fakeStore{}).MessageTTL())

	b := service.NewBoard(&fakeStore{}, service.WithMessageTTL(2*time.Second))
	assert.Equal(t, 2*time.Second, b.MessageTTL())
}
