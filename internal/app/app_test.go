package app

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/devtools"
	"edujourney/internal/journey"
	"edujourney/internal/pacing"
	"edujourney/internal/state"
	"edujourney/internal/telemetry"
	"edujourney/internal/ui"

	"github.com/stretchr/testify/require"
)

type fakeView struct {
	mu           sync.Mutex
	screen       ui.Screen
	login        ui.LoginState
	otp          ui.OTPState
	setup        ui.ProfileSetupState
	journey      ui.JourneyState
	lesson       ui.LessonState
	quiz         ui.QuizState
	board        ui.LeaderboardState
	achievements ui.AchievementsState
	chat         ui.ChatState
	profile      ui.ProfileState
	helpOpen     bool
	confirmOpen  bool
	flashes      []string
}

func (v *fakeView) Run() error                  { return nil }
func (v *fakeView) Stop()                       {}
func (v *fakeView) SetController(ui.Controller) {}
func (v *fakeView) RequestDraw()                {}
func (v *fakeView) SetBusy(string)              {}

func (v *fakeView) SetScreen(s ui.Screen) { v.with(func() { v.screen = s }) }
func (v *fakeView) SetLogin(s ui.LoginState) {
	v.with(func() { v.login = s })
}
func (v *fakeView) SetOTP(s ui.OTPState) { v.with(func() { v.otp = s }) }
func (v *fakeView) SetProfileSetup(s ui.ProfileSetupState) {
	v.with(func() { v.setup = s })
}
func (v *fakeView) SetJourney(s ui.JourneyState) { v.with(func() { v.journey = s }) }
func (v *fakeView) SetLesson(s ui.LessonState)   { v.with(func() { v.lesson = s }) }
func (v *fakeView) SetQuiz(s ui.QuizState)       { v.with(func() { v.quiz = s }) }
func (v *fakeView) SetLeaderboard(s ui.LeaderboardState) {
	v.with(func() { v.board = s })
}
func (v *fakeView) SetAchievements(s ui.AchievementsState) {
	v.with(func() { v.achievements = s })
}
func (v *fakeView) SetChat(s ui.ChatState)       { v.with(func() { v.chat = s }) }
func (v *fakeView) SetProfile(s ui.ProfileState) { v.with(func() { v.profile = s }) }
func (v *fakeView) SetHelpOpen(open bool)        { v.with(func() { v.helpOpen = open }) }
func (v *fakeView) SetCompleteConfirmOpen(open bool) {
	v.with(func() { v.confirmOpen = open })
}
func (v *fakeView) FlashStatus(msg string) {
	v.with(func() { v.flashes = append(v.flashes, msg) })
}

func (v *fakeView) with(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn()
}

func (v *fakeView) lastFlash() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.flashes) == 0 {
		return ""
	}
	return v.flashes[len(v.flashes)-1]
}

func (v *fakeView) currentScreen() ui.Screen {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.screen
}

func (v *fakeView) lessonState() ui.LessonState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lesson
}

func (v *fakeView) otpState() ui.OTPState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.otp
}

func (v *fakeView) journeyState() ui.JourneyState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.journey
}

type manualClock struct {
	tickers chan *manualTicker
}

func (c *manualClock) NewTicker(time.Duration) pacing.Ticker {
	t := &manualTicker{c: make(chan time.Time)}
	c.tickers <- t
	return t
}

type manualTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               { t.stopped.Store(true) }

type harness struct {
	t     *testing.T
	app   *App
	view  *fakeView
	srv   *devtools.Server
	store *state.SQLiteStore
	clock *manualClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	pack, err := devtools.DefaultPack()
	require.NoError(t, err)
	srv := devtools.NewServer(pack, devtools.ServerOptions{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	store, err := state.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))

	cfg := DefaultConfig()
	cfg.APIBaseURL = ts.URL
	cfg.Timeout = 5 * time.Second
	cfg.PacingCooldown = time.Second
	cfg.DataDir = t.TempDir()
	cfg.DevStateDir = t.TempDir()
	require.NoError(t, cfg.Validate())

	client := api.New(api.Options{BaseURL: ts.URL, Timeout: cfg.Timeout})
	view := &fakeView{}
	a := newApp(cfg, telemetry.NewZap(nil), store, client, view, nil)
	clock := &manualClock{tickers: make(chan *manualTicker, 16)}
	a.clock = clock
	a.mock = srv
	t.Cleanup(a.Close)
	return &harness{t: t, app: a, view: view, srv: srv, store: store, clock: clock}
}

func (h *harness) login() {
	h.t.Helper()
	h.app.OnLogin(devtools.DemoEmail, "Secret#123")
	require.Equal(h.t, ui.ScreenJourney, h.view.currentScreen())
}

// tick fires the countdown ticker created by the last NextBody.
func (h *harness) tick() {
	h.t.Helper()
	select {
	case tk := <-h.clock.tickers:
		tk.c <- time.Now()
	case <-time.After(2 * time.Second):
		h.t.Fatalf("no countdown was started")
	}
}

func (h *harness) readToEnd() {
	h.t.Helper()
	for i := 0; i < 10 && !h.view.lessonState().IsLast; i++ {
		h.app.OnNextBody()
		h.tick()
	}
	require.Eventually(h.t, func() bool { return h.view.lessonState().Complete }, 2*time.Second, 10*time.Millisecond)
}

func TestLoginLeadsToJourney(t *testing.T) {
	h := newHarness(t)
	h.login()

	st := h.view.journeyState()
	require.Equal(t, []string{"Mathematics", "Science"}, st.Subjects)
	require.Equal(t, 1, st.Map.Completed)
	require.Equal(t, 4, st.Map.Total)
	cur, ok := st.Map.Current()
	require.True(t, ok)
	require.Equal(t, journey.ID("102"), cur.Level.ID)
	require.Empty(t, st.Err)

	sess, err := h.store.LoadSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, devtools.DemoEmail, sess.Email)
	require.NotEmpty(t, sess.Token)
}

func TestSelectedSubjectIsRememberedAcrossLogins(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.app.OnSelectSubject(1)
	require.Equal(t, 1, h.view.journeyState().SubjectIndex)

	h.app.OnLogout()
	h.login()
	require.Equal(t, 1, h.view.journeyState().SubjectIndex)
}

func TestLoginWithWrongPasswordStaysOnLogin(t *testing.T) {
	h := newHarness(t)
	h.app.OnLogin(devtools.DemoEmail, "wrong")
	require.Equal(t, ui.ScreenLogin, h.view.currentScreen())
	require.Equal(t, "Invalid email or password", h.view.login.Err)
}

func TestRegisterVerifyAndCompleteProfile(t *testing.T) {
	h := newHarness(t)
	h.app.OnRegister(ui.RegisterForm{
		Username:        "nina",
		Email:           "nina@example.com",
		Password:        "Secret#123",
		ConfirmPassword: "Secret#123",
	})
	require.Equal(t, ui.ScreenOTP, h.view.currentScreen())
	require.Equal(t, "nina@example.com", h.view.otp.Email)
	require.Zero(t, h.view.otp.ResendIn)

	for _, r := range devtools.DefaultOTPCode {
		h.app.OnOTPInput(r)
	}
	require.Equal(t, ui.ScreenProfileSetup, h.view.currentScreen())
	require.NotEmpty(t, h.view.setup.Subjects)

	h.app.OnSubmitProfile(ui.ProfileForm{FullName: "Nina", Gender: "female", ClassID: 2, GradeLevelID: 1})
	require.Equal(t, ui.ScreenProfileSetup, h.view.currentScreen())
	require.Equal(t, "Please choose at least one subject", h.view.setup.Err)
	require.Equal(t, "Nina", h.view.setup.Draft.FullName)

	h.app.OnSubmitProfile(ui.ProfileForm{FullName: "Nina", Gender: "female", ClassID: 2, GradeLevelID: 1, SubjectIDs: []string{"1"}})
	require.Equal(t, ui.ScreenJourney, h.view.currentScreen())
	st := h.view.journeyState()
	require.Zero(t, st.Map.Completed)
	cur, ok := st.Map.Current()
	require.True(t, ok)
	require.Equal(t, journey.ID("101"), cur.Level.ID)
}

func TestWrongOTPKeepsCodeScreen(t *testing.T) {
	h := newHarness(t)
	h.app.mu.Lock()
	h.app.startOTPLocked(devtools.DemoEmail, true)
	h.app.mu.Unlock()
	require.Positive(t, h.view.otpState().ResendIn)

	for _, r := range "000000" {
		h.app.OnOTPInput(r)
	}
	require.Equal(t, ui.ScreenOTP, h.view.currentScreen())
	require.NotEmpty(t, h.view.otpState().Err)

	h.app.OnResendOTP()
	require.Equal(t, ui.ScreenOTP, h.view.currentScreen())
	require.NotEqual(t, "A new code is on its way", h.view.lastFlash())
}

func TestLockedLevelIsRefused(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.app.OnOpenLevel("103")
	require.Equal(t, ui.ScreenJourney, h.view.currentScreen())
	require.Equal(t, "Finish the previous lesson to unlock this one", h.view.lastFlash())
}

func TestCompletingLessonRefreshesJourney(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.app.OnOpenLevel("102")
	require.Equal(t, ui.ScreenLesson, h.view.currentScreen())
	require.Equal(t, journey.ID("102"), h.view.lessonState().Level.ID)

	h.app.OnCompleteLevel()
	require.Equal(t, ui.ScreenLesson, h.view.currentScreen())
	require.Equal(t, "Read to the end of the lesson first", h.view.lastFlash())

	h.readToEnd()
	h.app.OnCompleteLevel()
	require.Equal(t, ui.ScreenJourney, h.view.currentScreen())
	require.True(t, strings.HasSuffix(h.view.lastFlash(), "+25 points"), h.view.lastFlash())

	st := h.view.journeyState()
	require.Equal(t, 2, st.Map.Completed)
	require.True(t, st.FirstToday)
	cur, ok := st.Map.Current()
	require.True(t, ok)
	require.Equal(t, journey.ID("103"), cur.Level.ID)

	summary, err := h.store.GetSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Visits)
	require.Equal(t, 1, summary.Completed)
}

func TestBackToJourneyAbandonsVisit(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.app.OnOpenLevel("102")
	h.app.OnNextBody()
	h.app.OnBackToJourney()
	require.Equal(t, ui.ScreenJourney, h.view.currentScreen())

	summary, err := h.store.GetSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Visits)
	require.Zero(t, summary.Completed)
}

func TestLessonWithoutBodiesOpensOnItsLastPage(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.app.mu.Lock()
	h.app.openLessonLocked(context.Background(), journey.Level{ID: "999", Title: "Empty"})
	h.app.mu.Unlock()

	require.Equal(t, ui.ScreenLesson, h.view.currentScreen())
	st := h.view.lessonState()
	require.Zero(t, st.Count)
	require.True(t, st.IsLast)
	require.True(t, st.Complete)
	require.NotEmpty(t, st.Body.Content)

	h.app.OnNextBody()
	require.Zero(t, h.view.lessonState().Pacing.BodyIndex)

	h.app.OnBackToJourney()
	require.Equal(t, ui.ScreenJourney, h.view.currentScreen())
}

func TestQuizRequiresEveryAnswer(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.app.OnOpenLevel("101")
	h.app.OnOpenQuiz()
	require.Equal(t, ui.ScreenQuiz, h.view.currentScreen())
	require.Len(t, h.view.quiz.Sheet, 1)

	h.app.OnSubmitQuiz()
	require.Equal(t, "Answer every question first (1 left)", h.view.quiz.Err)

	h.app.OnChooseAnswer(0, 1)
	h.app.OnSubmitQuiz()
	require.NotNil(t, h.view.quiz.Result)
	require.Equal(t, 1, h.view.quiz.Result.Correct)
}

func TestLeaderboardAndAchievements(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.app.OnOpenLeaderboard("")
	require.Equal(t, ui.ScreenLeaderboard, h.view.currentScreen())
	require.Empty(t, h.view.board.Err)
	require.Equal(t, api.LeaderboardTotal, h.view.board.Kind)
	require.Len(t, h.view.board.Board.Podium, 3)

	h.app.OnOpenLeaderboard(api.LeaderboardWeekly)
	require.Equal(t, api.LeaderboardWeekly, h.view.board.Kind)

	h.app.OnOpenAchievements()
	require.Equal(t, ui.ScreenAchievements, h.view.currentScreen())
	require.Len(t, h.view.achievements.Items, 3)
}

func TestProfileMarkAllRead(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.app.OnOpenProfile()
	require.Equal(t, ui.ScreenProfile, h.view.currentScreen())
	require.Equal(t, 2, h.view.profile.Profile.ClassID)

	h.app.OnMarkAllRead()
	require.Equal(t, "All notifications marked as read", h.view.lastFlash())
	for _, n := range h.view.profile.Notifications {
		require.True(t, n.IsRead)
	}
}

func TestRestoreSessionResumesJourney(t *testing.T) {
	h := newHarness(t)
	token, ok := h.srv.IssueToken(devtools.DemoEmail)
	require.True(t, ok)
	require.NoError(t, h.store.SaveSession(context.Background(), state.Session{Token: token, Email: devtools.DemoEmail}))

	h.app.mu.Lock()
	h.app.restoreSessionLocked()
	h.app.mu.Unlock()
	require.Equal(t, ui.ScreenJourney, h.view.currentScreen())
}

func TestRestoreSessionWithStaleTokenShowsLogin(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.SaveSession(context.Background(), state.Session{Token: "stale", Email: devtools.DemoEmail}))

	h.app.mu.Lock()
	h.app.restoreSessionLocked()
	h.app.mu.Unlock()
	require.Equal(t, ui.ScreenLogin, h.view.currentScreen())
	require.Contains(t, h.view.login.Err, "expired")
	require.Equal(t, devtools.DemoEmail, h.view.login.Email)
}

func TestLogoutClearsSession(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.app.OnLogout()
	require.Equal(t, ui.ScreenLogin, h.view.currentScreen())
	require.Equal(t, devtools.DemoEmail, h.view.login.Email)

	sess, err := h.store.LoadSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestFetchJourneyNeedsClass(t *testing.T) {
	h := newHarness(t)
	_, err := FetchJourney(context.Background(), h.app.client, journey.Resolver{}, 0, 0, api.LeaderboardTotal)
	require.ErrorIs(t, err, api.ErrProfileIncomplete)
}

func TestDemoScenarioSignsInFixtureUser(t *testing.T) {
	h := newHarness(t)
	resolved, err := h.app.runDemoScenario(context.Background(), "complete_confirm")
	require.NoError(t, err)
	require.Equal(t, "lesson_complete", resolved)
	require.Equal(t, ui.ScreenLesson, h.view.currentScreen())
	require.True(t, h.view.confirmOpen)

	st := h.app.getDevState()
	require.Equal(t, "lesson_complete", st["state"])
	require.Equal(t, true, st["rendered"])
	require.Equal(t, true, st["ok"])
}

func TestDemoScenarioWithoutSessionFails(t *testing.T) {
	h := newHarness(t)
	h.app.mock = nil
	_, err := h.app.runDemoScenario(context.Background(), "leaderboard")
	require.Error(t, err)
	st := h.app.getDevState()
	require.Equal(t, false, st["ok"])
	require.Equal(t, "leaderboard", st["state"])
}
