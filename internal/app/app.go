package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/chat"
	"edujourney/internal/devtools"
	"edujourney/internal/events"
	"edujourney/internal/journey"
	"edujourney/internal/lesson"
	"edujourney/internal/onboarding"
	"edujourney/internal/pacing"
	"edujourney/internal/quiz"
	"edujourney/internal/state"
	"edujourney/internal/telemetry"
	"edujourney/internal/ui"

	"github.com/google/uuid"
)

type App struct {
	cfg Config

	logger *telemetry.Logger
	store  state.Store
	client Backend
	demo   *devtools.Manager
	bus    *events.Bus
	toasts *events.Toasts
	chat   *chat.Store
	view   ui.View

	resolver journey.Resolver
	now      func() time.Time
	clock    pacing.Clock

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	unsub  []func()

	mock       *devtools.Server
	mockCancel context.CancelFunc

	// mu guards everything below. Controller callbacks arrive on their own
	// goroutines and hold it for the whole handler.
	mu        sync.Mutex
	sessionID string
	screen    ui.Screen

	user    api.User
	profile api.Profile

	otp         *onboarding.OTP
	otpStop     context.CancelFunc
	loginNotice string

	journey      Journey
	subjectIndex int
	firstToday   bool
	streakStart  bool

	lessonLevel  journey.Level
	lessonBodies lesson.Sequence
	pacer        *pacing.Machine
	visitID      int64

	sheet      *quiz.Sheet
	quizResult *quiz.Result
	boardKind  string

	devMu     sync.Mutex
	devServer *http.Server
	demoMu    sync.Mutex
	devState  struct {
		State     string
		Demo      string
		RenderSeq int
		Rendered  bool
		Pending   bool
		Error     string
	}
}

func New(cfg Config) (*App, error) {
	d, err := openDeps(cfg)
	if err != nil {
		return nil, err
	}
	toasts := events.NewToasts(time.Now)
	view := ui.New(ui.Options{
		ASCIIOnly:    cfg.UI.ASCIIOnly,
		Debug:        cfg.DebugLayout,
		StyleVariant: cfg.UI.StyleVariant,
		MotionLevel:  cfg.UI.MotionLevel,
		MouseScope:   cfg.UI.MouseScope,
		Toasts:       toasts,
	})

	a := newApp(d.cfg, d.logger, d.store, d.client, view, toasts)
	a.mock = d.mock
	a.mockCancel = d.mockCancel
	return a, nil
}

// deps are the collaborators shared by the TUI and the one-shot commands.
type deps struct {
	cfg        Config
	logger     *telemetry.Logger
	store      *state.SQLiteStore
	client     *api.Client
	mock       *devtools.Server
	mockCancel context.CancelFunc
}

func openDeps(cfg Config) (*deps, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(telemetry.Options{Path: cfg.LogPath, Debug: cfg.Debug})
	if err != nil {
		return nil, err
	}

	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "state.db"))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	d := &deps{cfg: cfg, logger: logger, store: store}
	baseURL := cfg.APIBaseURL
	if cfg.Mock {
		d.mock, baseURL, d.mockCancel, err = startMock(cfg, logger)
		if err != nil {
			_ = store.Close()
			_ = logger.Close()
			return nil, err
		}
	}
	d.client = api.New(api.Options{
		BaseURL:       baseURL,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         4,
		Logger:        logger,
	})
	return d, nil
}

// newApp wires an App around already-built collaborators.
func newApp(cfg Config, logger *telemetry.Logger, store state.Store, client Backend, view ui.View, toasts *events.Toasts) *App {
	ctx, cancel := context.WithCancel(context.Background())
	bus := events.NewBus()
	a := &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		client:    client,
		demo:      devtools.NewManager(),
		bus:       bus,
		toasts:    toasts,
		chat:      chat.NewStore(client, time.Now),
		view:      view,
		resolver:  journey.Resolver{ParityMode: cfg.ParityMode},
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		sessionID: uuid.NewString(),
		screen:    ui.ScreenLogin,
		boardKind: cfg.Leaderboard.Type,
	}
	if toasts != nil {
		a.unsub = append(a.unsub, toasts.Attach(bus))
	}
	a.unsub = append(a.unsub,
		bus.Subscribe(events.TopicLevelCompleted, func(e events.Event) {
			a.logger.Info("event.level_completed", map[string]any{"payload": e.Payload})
		}),
		bus.Subscribe(events.TopicStreak, func(e events.Event) {
			a.logger.Info("event.streak", map[string]any{"payload": e.Payload})
		}),
	)
	view.SetController(a)
	return a
}

// startMock runs the fixture backend on an ephemeral local port.
func startMock(cfg Config, logger *telemetry.Logger) (*devtools.Server, string, context.CancelFunc, error) {
	pack, err := devtools.DefaultPack()
	if cfg.FixturesPath != "" {
		pack, err = devtools.LoadPack(cfg.FixturesPath)
	}
	if err != nil {
		return nil, "", nil, fmt.Errorf("load fixtures: %w", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", nil, err
	}
	srv := devtools.NewServer(pack, devtools.ServerOptions{Logger: logger, Latency: cfg.MockLatency})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := srv.ServeListener(ctx, ln); err != nil {
			logger.Error("mock.serve_failed", map[string]any{"error": err.Error()})
		}
	}()
	return srv, "http://" + ln.Addr().String(), cancel, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("app.start", map[string]any{"session": a.sessionID, "api": a.cfg.APIBaseURL, "mock": a.cfg.Mock})
	go func() {
		select {
		case <-ctx.Done():
			a.view.Stop()
		case <-a.ctx.Done():
		}
	}()

	a.mu.Lock()
	a.restoreSessionLocked()
	a.mu.Unlock()

	if a.cfg.Dev {
		if err := a.startDevHTTP(); err != nil {
			return err
		}
		if a.cfg.DemoScenario != "" {
			if _, err := a.runDemoScenario(a.ctx, a.cfg.DemoScenario); err != nil {
				a.logger.Error("dev.demo.initial_failed", map[string]any{"demo": a.cfg.DemoScenario, "error": err.Error()})
			}
		} else {
			a.setDevState(a.currentScreen().String(), "")
			_ = a.demo.SetState(context.Background(), a.cfg.DevStateDir, a.currentScreen().String(), true)
		}
	}

	return a.view.Run()
}

func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.devServer != nil {
		_ = a.devServer.Shutdown(ctx)
	}

	a.mu.Lock()
	a.stopOTPTimerLocked()
	a.closeLessonLocked(false)
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
	for _, fn := range a.unsub {
		fn()
	}
	if a.mockCancel != nil {
		a.mockCancel()
	}
	_ = a.store.Close()
	a.logger.Info("app.stop", map[string]any{"session": a.sessionID})
	_ = a.logger.Close()
}

// opCtx bounds one controller operation. Closing the app cancels it.
func (a *App) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(a.ctx, 2*a.cfg.Timeout)
}

func (a *App) currentScreen() ui.Screen {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

func (a *App) showLocked(screen ui.Screen) {
	if a.screen == ui.ScreenChat && screen != ui.ScreenChat {
		a.chat.Clear()
	}
	a.screen = screen
	a.view.SetScreen(screen)
	if a.cfg.Dev {
		a.setDevState(screen.String(), "")
	}
}

// fail logs err under event and shows the user-facing text in the status
// line.
func (a *App) fail(event string, err error, fallback string) string {
	msg := api.ErrorMessage(err, fallback)
	a.logger.Error(event, map[string]any{"error": err.Error()})
	a.view.FlashStatus(msg)
	return msg
}

func (a *App) OnQuit() {
	a.logger.Info("app.quit", nil)
	a.view.Stop()
}

func (a *App) OnResize(cols, rows int) {
	a.logger.Debug("ui.resize", map[string]any{"cols": cols, "rows": rows, "layout": ui.DetermineLayoutMode(cols, rows)})
}
