package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"edujourney/internal/devtools"
	"edujourney/internal/events"
	"edujourney/internal/ui"
)

func (a *App) setDevState(state, demo string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = state
	a.devState.Demo = demo
	a.devState.Rendered = true
	a.devState.Pending = false
	a.devState.Error = ""
	a.devState.RenderSeq++
}

func (a *App) setDevPending(state, demo string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = state
	a.devState.Demo = demo
	a.devState.Rendered = false
	a.devState.Pending = true
	a.devState.Error = ""
	a.devState.RenderSeq++
}

func (a *App) setDevError(state, demo, errText string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = state
	a.devState.Demo = demo
	a.devState.Rendered = false
	a.devState.Pending = false
	a.devState.Error = errText
	a.devState.RenderSeq++
}

func (a *App) getDevState() map[string]any {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	return map[string]any{
		"ok":         a.devState.Error == "",
		"state":      a.devState.State,
		"demo":       a.devState.Demo,
		"render_seq": a.devState.RenderSeq,
		"rendered":   a.devState.Rendered,
		"pending":    a.devState.Pending,
		"error":      a.devState.Error,
	}
}

// runDemoScenario jumps to a named screen for screenshots and scripted
// checks. Scenarios run one at a time.
func (a *App) runDemoScenario(ctx context.Context, requested string) (string, error) {
	resolved := a.demo.Resolve(requested).Name
	a.logger.Info("dev.demo.dispatch.begin", map[string]any{"requested": requested, "resolved": resolved})
	a.setDevPending(resolved, requested)

	a.demoMu.Lock()
	defer a.demoMu.Unlock()

	if err := a.applyDemoScenario(ctx, requested); err != nil {
		a.logger.Error("dev.demo.dispatch.apply_failed", map[string]any{"requested": requested, "resolved": resolved, "error": err.Error()})
		a.setDevError(resolved, requested, err.Error())
		_ = a.demo.SetState(ctx, a.cfg.DevStateDir, resolved, false)
		return resolved, err
	}
	a.view.RequestDraw()
	a.logger.Info("dev.demo.dispatch.done", map[string]any{"requested": requested, "resolved": resolved})
	a.setDevState(resolved, requested)
	if err := a.demo.SetState(ctx, a.cfg.DevStateDir, resolved, true); err != nil {
		a.logger.Error("dev_state.write_failed", map[string]any{"state": resolved, "error": err.Error()})
	}
	return resolved, nil
}

func (a *App) applyDemoScenario(ctx context.Context, requested string) error {
	sc := a.demo.Resolve(requested)

	switch sc.Screen {
	case devtools.ScreenLogin:
		a.OnLogout()
		return nil
	case devtools.ScreenOTP:
		a.mu.Lock()
		a.startOTPLocked(devtools.DemoEmail, true)
		a.mu.Unlock()
		return nil
	}

	if err := a.ensureDemoSession(ctx); err != nil {
		return err
	}
	switch sc.Screen {
	case devtools.ScreenProfileSetup:
		a.mu.Lock()
		a.showProfileSetupLocked(ctx, "")
		a.mu.Unlock()
	case devtools.ScreenLesson, devtools.ScreenQuiz:
		if err := a.openDemoLesson(); err != nil {
			return err
		}
		if sc.Screen == devtools.ScreenQuiz {
			a.OnOpenQuiz()
		}
	case devtools.ScreenLeaderboard:
		a.OnOpenLeaderboard("")
	case devtools.ScreenAchievements:
		a.OnOpenAchievements()
	case devtools.ScreenChat:
		a.OnOpenChat()
	case devtools.ScreenProfile:
		a.OnOpenProfile()
	default:
		a.OnBackToJourney()
	}

	switch sc.Overlay {
	case "help":
		a.view.SetHelpOpen(true)
	case "complete":
		a.view.SetCompleteConfirmOpen(true)
	case "toast":
		a.bus.PublishAchievement(events.Achievement{
			Name:        "First Steps",
			Description: "Finished your first lesson",
			Icon:        "🏆",
			Points:      50,
		})
	}
	return nil
}

// ensureDemoSession signs in the fixture user when nobody is signed in.
// Only the mock backend can mint a session without credentials.
func (a *App) ensureDemoSession(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client.Token() != "" && a.profile.ClassID != 0 {
		return nil
	}
	if a.mock == nil {
		return errors.New("demo scenarios need a signed-in session or --mock")
	}
	token, ok := a.mock.IssueToken(devtools.DemoEmail)
	if !ok {
		return fmt.Errorf("fixture user %s is missing", devtools.DemoEmail)
	}
	a.client.SetToken(token)
	user, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	a.afterAuthLocked(ctx, token, user)
	return nil
}

func (a *App) openDemoLesson() error {
	a.mu.Lock()
	node, ok := a.journey.Map.Current()
	a.mu.Unlock()
	if !ok {
		return errors.New("journey has no open lesson")
	}
	a.OnOpenLevel(node.Level.ID.String())
	if a.currentScreen() != ui.ScreenLesson {
		return errors.New("lesson did not open")
	}
	return nil
}

func (a *App) startDevHTTP() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/__dev/ready", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.getDevState())
	})
	mux.HandleFunc("/__dev/demo", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		var req struct {
			Demo string `json:"demo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "invalid json"})
			return
		}
		req.Demo = strings.TrimSpace(req.Demo)
		if req.Demo == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "demo is required"})
			return
		}
		a.logger.Info("dev.demo.request", map[string]any{"demo": req.Demo})

		ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
		defer cancel()
		resolved, err := a.runDemoScenario(ctx, req.Demo)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": err.Error(), "state": resolved})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "state": resolved, "requested": req.Demo})
	})

	a.devServer = &http.Server{Addr: a.cfg.DevHTTP, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	a.setDevState(a.currentScreen().String(), a.cfg.DemoScenario)
	go func() {
		if err := a.devServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("dev_http.listen_failed", map[string]any{"error": err.Error(), "addr": a.cfg.DevHTTP})
		}
	}()
	return nil
}
