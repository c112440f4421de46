package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/devtools"
	"edujourney/internal/journey"
	"edujourney/internal/rewards"
	"edujourney/internal/state"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNotSignedIn          = errors.New("not signed in; run `edujourney login` first")
	ErrVerificationRequired = errors.New("email not verified; a code was sent, run `edujourney verify`")
)

// Headless runs the same backend and session store as the TUI for the
// one-shot commands.
type Headless struct {
	d        *deps
	resolver journey.Resolver
}

func OpenHeadless(cfg Config) (*Headless, error) {
	d, err := openDeps(cfg)
	if err != nil {
		return nil, err
	}
	return &Headless{d: d, resolver: journey.Resolver{ParityMode: d.cfg.ParityMode}}, nil
}

func (h *Headless) Config() Config      { return h.d.cfg }
func (h *Headless) Client() *api.Client { return h.d.client }

func (h *Headless) Close() error {
	if h.d.mockCancel != nil {
		h.d.mockCancel()
	}
	err := h.d.store.Close()
	_ = h.d.logger.Close()
	return err
}

func (h *Headless) saveSession(ctx context.Context, token string, user api.User) error {
	return h.d.store.SaveSession(ctx, state.Session{
		Token:           token,
		UserID:          user.ID.String(),
		Email:           user.Email,
		Username:        user.Username,
		ProfileComplete: user.ProfileComplete,
		SavedTS:         time.Now(),
	})
}

// Login signs in and saves the session. An unverified account gets a fresh
// code and ErrVerificationRequired.
func (h *Headless) Login(ctx context.Context, email, password string) (api.User, error) {
	if email == "" || password == "" {
		return api.User{}, api.ErrMissingCredentials
	}
	res, err := h.d.client.Login(ctx, email, password)
	if err != nil {
		if needsVerification(err) {
			if rerr := h.d.client.RequestOTP(ctx, email, ""); rerr != nil {
				h.d.logger.Warn("auth.request_otp_failed", map[string]any{"error": rerr.Error()})
			}
			return api.User{}, ErrVerificationRequired
		}
		return api.User{}, err
	}
	h.d.logger.Info("auth.login", map[string]any{"user": res.User.ID.String(), "headless": true})
	return res.User, h.saveSession(ctx, res.Token, res.User)
}

func (h *Headless) Verify(ctx context.Context, email, code string) (api.User, error) {
	res, err := h.d.client.VerifyEmail(ctx, email, code)
	if err != nil {
		return api.User{}, err
	}
	return res.User, h.saveSession(ctx, res.Token, res.User)
}

func (h *Headless) Logout(ctx context.Context) error {
	h.d.client.SetToken("")
	return h.d.store.ClearSession(ctx)
}

// Resume restores the saved session. Against the fixture backend the demo
// learner is signed in instead, since its tokens do not outlive the process.
func (h *Headless) Resume(ctx context.Context) (api.User, error) {
	if h.d.mock != nil {
		token, ok := h.d.mock.IssueToken(devtools.DemoEmail)
		if !ok {
			return api.User{}, fmt.Errorf("fixture user %s is missing", devtools.DemoEmail)
		}
		h.d.client.SetToken(token)
		return h.d.client.Me(ctx)
	}
	sess, err := h.d.store.LoadSession(ctx)
	if err != nil {
		return api.User{}, err
	}
	if sess == nil || sess.Token == "" {
		return api.User{}, ErrNotSignedIn
	}
	h.d.client.SetToken(sess.Token)
	user, err := h.d.client.Me(ctx)
	if api.IsUnauthorized(err) {
		_ = h.d.store.ClearSession(ctx)
		return api.User{}, ErrNotSignedIn
	}
	return user, err
}

// Journey loads one subject's map. A negative subjectIndex picks the subject
// last opened on this device.
func (h *Headless) Journey(ctx context.Context, subjectIndex int) (Journey, error) {
	user, err := h.Resume(ctx)
	if err != nil {
		return Journey{}, err
	}
	if subjectIndex < 0 {
		subjectIndex = savedSubject(ctx, h.d.store, h.d.logger)
	}
	profile, err := h.d.client.Profile(ctx)
	if err != nil {
		if user.Profile == nil {
			return Journey{}, err
		}
		profile = *user.Profile
	}
	return FetchJourney(ctx, h.d.client, h.resolver, profile.ClassID, subjectIndex, h.d.cfg.Leaderboard.Type)
}

func (h *Headless) Leaderboard(ctx context.Context, kind string) ([]rewards.Player, rewards.Rank, error) {
	if _, err := h.Resume(ctx); err != nil {
		return nil, rewards.Rank{}, err
	}
	if kind == "" {
		kind = h.d.cfg.Leaderboard.Type
	}
	var (
		players []rewards.Player
		rank    rewards.Rank
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := h.d.client.Leaderboard(gctx, kind, h.d.cfg.Leaderboard.Limit)
		players = rewards.NormalizeLeaderboard(raw)
		return err
	})
	g.Go(func() error {
		if raw, err := h.d.client.MyRank(gctx, kind); err == nil {
			rank, _ = rewards.NormalizeRank(raw)
		}
		return nil
	})
	return players, rank, g.Wait()
}

func (h *Headless) Achievements(ctx context.Context) ([]rewards.Achievement, error) {
	if _, err := h.Resume(ctx); err != nil {
		return nil, err
	}
	all, err := h.d.client.Achievements(ctx)
	if err != nil {
		return nil, err
	}
	mine, err := h.d.client.MyAchievements(ctx)
	if err != nil {
		h.d.logger.Warn("achievements.mine_failed", map[string]any{"error": err.Error()})
	}
	return rewards.MergeAchievements(all, mine), nil
}

// History is what this device remembers about lesson visits.
type History struct {
	state.Summary
	Last *state.LastVisit
}

// Stats pairs the backend's learner stats with the local lesson history.
func (h *Headless) Stats(ctx context.Context) (api.Stats, History, error) {
	if _, err := h.Resume(ctx); err != nil {
		return api.Stats{}, History{}, err
	}
	stats, err := h.d.client.Stats(ctx)
	if err != nil {
		return api.Stats{}, History{}, err
	}
	summary, err := h.d.store.GetSummary(ctx)
	if err != nil {
		return stats, History{}, err
	}
	last, err := h.d.store.GetLastVisit(ctx)
	return stats, History{Summary: summary, Last: last}, err
}
