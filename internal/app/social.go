package app

import (
	"errors"
	"fmt"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/journey"
	"edujourney/internal/quiz"
	"edujourney/internal/rewards"
	"edujourney/internal/state"
	"edujourney/internal/ui"

	"golang.org/x/sync/errgroup"
)

func (a *App) OnOpenLeaderboard(kind string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	if kind == "" {
		kind = a.boardKind
	}
	if kind != api.LeaderboardWeekly {
		kind = api.LeaderboardTotal
	}
	a.boardKind = kind

	var st ui.LeaderboardState
	st.Kind = kind
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := a.client.Leaderboard(gctx, kind, a.cfg.Leaderboard.Limit)
		if err != nil {
			return err
		}
		st.Board = rewards.Split(rewards.NormalizeLeaderboard(raw))
		return nil
	})
	g.Go(func() error {
		if raw, err := a.client.MyRank(gctx, kind); err == nil {
			st.Rank, _ = rewards.NormalizeRank(raw)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("leaderboard.load_failed", map[string]any{"kind": kind, "error": err.Error()})
		st.Err = api.ErrorMessage(err, "Failed to load leaderboard")
	}
	a.view.SetLeaderboard(st)
	a.showLocked(ui.ScreenLeaderboard)
}

func (a *App) OnOpenAchievements() {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	var all, mine []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := a.client.Achievements(gctx)
		all = raw
		return err
	})
	g.Go(func() error {
		raw, err := a.client.MyAchievements(gctx)
		if err != nil {
			a.logger.Warn("achievements.mine_failed", map[string]any{"error": err.Error()})
			return nil
		}
		mine = raw
		return nil
	})
	st := ui.AchievementsState{Now: a.now()}
	if err := g.Wait(); err != nil {
		a.logger.Error("achievements.load_failed", map[string]any{"error": err.Error()})
		st.Err = api.ErrorMessage(err, "Failed to load achievements")
	}
	st.Items = rewards.MergeAchievements(all, mine)
	a.view.SetAchievements(st)
	a.showLocked(ui.ScreenAchievements)
}

// chatTarget is the subject and level a new tutor session is about: the
// open lesson, or else the current node of the journey.
func (a *App) chatTarget() (subjectID, levelID journey.ID, label string) {
	subject, _ := a.journey.Subject()
	info := subject.SubjectInfo()
	subjectID = info.ID
	label = info.Name
	level := a.lessonLevel
	if a.pacer == nil {
		level = journey.Level{}
		if node, ok := a.journey.Map.Current(); ok {
			level = node.Level
		}
	}
	if level.ID != "" {
		levelID = level.ID
		if label == "" {
			label = level.Title
		} else {
			label += " · " + level.Title
		}
	}
	return subjectID, levelID, label
}

func (a *App) pushChat() {
	_, _, label := a.chatTarget()
	a.view.SetChat(ui.ChatState{Snapshot: a.chat.Snapshot(), Context: label})
}

func (a *App) OnOpenChat() {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	a.showLocked(ui.ScreenChat)
	if err := a.chat.LoadSessions(ctx); err != nil {
		a.logger.Warn("chat.sessions_failed", map[string]any{"error": err.Error()})
	}
	snap := a.chat.Snapshot()
	if n := len(snap.Sessions); n > 0 {
		if err := a.chat.Select(ctx, snap.Sessions[n-1]); err != nil {
			a.logger.Warn("chat.select_failed", map[string]any{"error": err.Error()})
		}
	} else {
		subjectID, levelID, _ := a.chatTarget()
		if _, err := a.chat.Open(ctx, subjectID, levelID); err != nil {
			a.logger.Warn("chat.open_failed", map[string]any{"error": err.Error()})
		}
	}
	a.pushChat()
}

func (a *App) OnNewChat() {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()
	subjectID, levelID, _ := a.chatTarget()
	if _, err := a.chat.Open(ctx, subjectID, levelID); err != nil {
		a.logger.Warn("chat.open_failed", map[string]any{"error": err.Error()})
	}
	a.pushChat()
}

func (a *App) OnSelectChatSession(index int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()
	sessions := a.chat.Snapshot().Sessions
	if index < 0 || index >= len(sessions) {
		return
	}
	if err := a.chat.Select(ctx, sessions[index]); err != nil {
		a.logger.Warn("chat.select_failed", map[string]any{"error": err.Error()})
	}
	a.pushChat()
}

// OnSendChat shows the optimistic message right away and keeps the typing
// indicator fresh until the tutor answers.
func (a *App) OnSendChat(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.chat.Send(ctx, text) }()
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if err != nil {
				a.logger.Warn("chat.send_failed", map[string]any{"error": err.Error()})
			}
			a.pushChat()
			return
		case <-ticker.C:
			a.pushChat()
		}
	}
}

func (a *App) OnOpenProfile() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loadProfileLocked("")
	a.showLocked(ui.ScreenProfile)
}

func (a *App) loadProfileLocked(errText string) {
	ctx, cancel := a.opCtx()
	defer cancel()

	st := ui.ProfileState{User: a.user, Profile: a.profile}
	var summary state.Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := a.client.Profile(gctx)
		if err == nil {
			st.Profile = p
		}
		return err
	})
	g.Go(func() error {
		if stats, err := a.client.Stats(gctx); err == nil {
			st.Stats = stats
		}
		return nil
	})
	g.Go(func() error {
		if items, err := a.client.Notifications(gctx, false, 10); err == nil {
			st.Notifications = items
		}
		return nil
	})
	g.Go(func() error {
		s, err := a.store.GetSummary(gctx)
		if err == nil {
			summary = s
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Warn("profile.load_failed", map[string]any{"error": err.Error()})
		if errText == "" {
			errText = api.ErrorMessage(err, "Failed to load profile")
		}
	} else {
		a.profile = st.Profile
	}
	st.Visits = summary.Visits
	st.Completed = summary.Completed
	st.Err = errText
	a.view.SetProfile(st)
}

func (a *App) OnUpdateAvatar(url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()
	profile, err := a.client.UpdateAvatar(ctx, url)
	if err != nil {
		a.logger.Warn("profile.avatar_failed", map[string]any{"error": err.Error()})
		a.loadProfileLocked(api.ErrorMessage(err, "Failed to update avatar"))
		return
	}
	a.profile = profile
	a.loadProfileLocked("")
	a.view.FlashStatus("Avatar updated")
}

func (a *App) OnMarkAllRead() {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()
	if err := a.client.MarkAllRead(ctx); err != nil {
		a.fail("notifications.mark_all_failed", err, "Failed to mark notifications as read")
		return
	}
	a.journey.Unread = 0
	a.loadProfileLocked("")
	a.view.FlashStatus("All notifications marked as read")
}

func (a *App) OnOpenQuiz() {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	level := a.lessonLevel
	if level.ID == "" {
		a.view.FlashStatus("Open a lesson first")
		return
	}
	sheet, err := quiz.Load(ctx, a.client, level.ID, a.now())
	if err != nil {
		a.view.SetBusy("")
		a.fail("quiz.load_failed", err, "Failed to load the quiz")
		return
	}
	a.sheet = sheet
	a.quizResult = nil
	a.logger.Info("quiz.open", map[string]any{"level": level.ID.String(), "questions": len(sheet.Questions)})
	a.pushQuizLocked("")
	a.showLocked(ui.ScreenQuiz)
}

func (a *App) pushQuizLocked(errText string) {
	if a.sheet == nil {
		return
	}
	choices := make([]int, len(a.sheet.Questions))
	for i := range choices {
		choices[i] = a.sheet.Choice(i)
	}
	a.view.SetQuiz(ui.QuizState{
		Level:   a.lessonLevel,
		Sheet:   a.sheet.Questions,
		Choices: choices,
		Result:  a.quizResult,
		Err:     errText,
	})
}

func (a *App) OnChooseAnswer(question, choice int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sheet == nil || a.quizResult != nil {
		return
	}
	if err := a.sheet.Choose(question, choice); err != nil {
		a.logger.Debug("quiz.choose_rejected", map[string]any{"error": err.Error()})
		return
	}
	a.pushQuizLocked("")
}

func (a *App) OnSubmitQuiz() {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()
	if a.sheet == nil || a.quizResult != nil {
		return
	}
	res, err := a.sheet.Submit(ctx, a.client, a.now())
	if errors.Is(err, quiz.ErrIncomplete) {
		a.pushQuizLocked(fmt.Sprintf("Answer every question first (%d left)", len(a.sheet.Unanswered())))
		return
	}
	if err != nil {
		a.logger.Error("quiz.submit_failed", map[string]any{"error": err.Error()})
		a.pushQuizLocked(api.ErrorMessage(err, "Failed to submit answers"))
		return
	}
	a.quizResult = &res
	a.logger.Info("quiz.submit", map[string]any{"level": res.LevelID.String(), "score": res.Score, "passed": res.Passed, "duration_ms": res.DurationMS})
	a.pushQuizLocked("")
}
