package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"edujourney/internal/api"
	"edujourney/internal/events"
	"edujourney/internal/journey"
	"edujourney/internal/lesson"
	"edujourney/internal/pacing"
	"edujourney/internal/rewards"
	"edujourney/internal/state"
	"edujourney/internal/telemetry"
	"edujourney/internal/ui"

	"golang.org/x/sync/errgroup"
)

// Journey is one subject's loaded journey plus the learner summary shown
// beside it.
type Journey struct {
	Subjects     []api.SubjectLevel
	SubjectIndex int
	Levels       []journey.Level
	Entries      []journey.ProgressEntry
	Map          journey.Map
	Stats        api.Stats
	Rank         rewards.Rank
	Unread       int
}

// Subject returns the selected subject level, if any.
func (j Journey) Subject() (api.SubjectLevel, bool) {
	if j.SubjectIndex < 0 || j.SubjectIndex >= len(j.Subjects) {
		return api.SubjectLevel{}, false
	}
	return j.Subjects[j.SubjectIndex], true
}

func (j Journey) SubjectNames() []string {
	names := make([]string, 0, len(j.Subjects))
	for _, s := range j.Subjects {
		info := s.SubjectInfo()
		names = append(names, firstNonEmpty(info.Name, info.ID.String()))
	}
	return names
}

// FetchJourney loads the subjects of classID and the journey of the one at
// subjectIndex. Levels and progress are required; stats, rank and the
// unread count are best effort. The map is still built when the subject
// has no levels, and ErrNoLevels is returned alongside it.
func FetchJourney(ctx context.Context, b Backend, resolver journey.Resolver, classID, subjectIndex int, rankKind string) (Journey, error) {
	if classID == 0 {
		return Journey{}, api.ErrProfileIncomplete
	}
	subjects, err := b.SubjectLevelsByClass(ctx, classID)
	if err != nil {
		return Journey{}, err
	}
	if len(subjects) == 0 {
		return Journey{}, api.ErrNoSubjects
	}
	if subjectIndex < 0 || subjectIndex >= len(subjects) {
		subjectIndex = 0
	}
	out := Journey{Subjects: subjects, SubjectIndex: subjectIndex}
	subjectLevelID := subjects[subjectIndex].ID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		levels, err := b.LevelsBySubjectLevel(gctx, subjectLevelID)
		out.Levels = levels
		return err
	})
	g.Go(func() error {
		entries, err := b.JourneyMap(gctx, subjectLevelID)
		out.Entries = entries
		return err
	})
	g.Go(func() error {
		if stats, err := b.Stats(gctx); err == nil {
			out.Stats = stats
		}
		return nil
	})
	g.Go(func() error {
		if raw, err := b.MyRank(gctx, rankKind); err == nil {
			out.Rank, _ = rewards.NormalizeRank(raw)
		}
		return nil
	})
	g.Go(func() error {
		if n, err := b.UnreadCount(gctx); err == nil {
			out.Unread = n
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return out, err
	}

	out.Map = resolver.BuildMap(out.Levels, out.Entries)
	if len(out.Levels) == 0 {
		return out, api.ErrNoLevels
	}
	return out, nil
}

func (a *App) loadJourneyLocked(ctx context.Context) {
	j, err := FetchJourney(ctx, a.client, a.resolver, a.profile.ClassID, a.subjectIndex, a.boardKind)
	switch {
	case errors.Is(err, api.ErrProfileIncomplete):
		a.showProfileSetupLocked(ctx, err.Error())
		return
	case err != nil && !errors.Is(err, api.ErrNoLevels):
		a.logger.Error("journey.load_failed", map[string]any{"class": a.profile.ClassID, "subject": a.subjectIndex, "error": err.Error()})
		if len(j.Subjects) > 0 {
			a.journey = j
		}
		a.pushJourneyLocked(api.ErrorMessage(err, "Could not load your journey"))
		return
	}
	a.journey = j
	a.subjectIndex = j.SubjectIndex
	if flags, ferr := a.store.GetCompletion(ctx, a.now()); ferr == nil {
		a.firstToday = flags.FirstCompletionToday
		a.streakStart = flags.StreakActivatedToday
	}
	a.logger.Info("journey.load", map[string]any{
		"subject":   a.subjectIndex,
		"levels":    len(j.Levels),
		"completed": j.Map.Completed,
		"percent":   j.Map.Percent,
	})
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	a.pushJourneyLocked(errText)
}

func (a *App) pushJourneyLocked(errText string) {
	j := a.journey
	points := j.Stats.TotalPoints()
	if points == 0 {
		points = a.profile.Points.Total
	}
	streak := j.Stats.CurrentStreak()
	if streak == 0 {
		streak = a.profile.Streak.Current
	}
	a.view.SetJourney(ui.JourneyState{
		Username:      a.user.DisplayName(),
		Subjects:      j.SubjectNames(),
		SubjectIndex:  j.SubjectIndex,
		Map:           j.Map,
		Points:        points,
		Streak:        streak,
		Rank:          j.Rank.Label(),
		Unread:        j.Unread,
		Err:           errText,
		FirstToday:    a.firstToday,
		StreakStarted: a.streakStart,
	})
}

// settingSubject remembers the subject tab between runs.
const settingSubject = "journey.subject"

func savedSubject(ctx context.Context, store state.Store, logger *telemetry.Logger) int {
	values, err := store.LoadSettings(ctx)
	if err != nil {
		logger.Warn("settings.load_failed", map[string]any{"error": err.Error()})
		return 0
	}
	return state.SettingInt(values, settingSubject, 0)
}

func (a *App) OnSelectSubject(index int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()
	a.subjectIndex = index
	a.loadJourneyLocked(ctx)
	a.view.SetBusy("")
	if err := a.store.SaveSettings(ctx, map[string]string{settingSubject: strconv.Itoa(a.subjectIndex)}); err != nil {
		a.logger.Warn("settings.save_failed", map[string]any{"error": err.Error()})
	}
}

func (a *App) OnRefresh() {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()
	a.loadJourneyLocked(ctx)
	a.view.SetBusy("")
	a.view.FlashStatus("Journey refreshed")
}

// OnOpenLevel starts a lesson visit. Locked levels are refused here too,
// not only in the view.
func (a *App) OnOpenLevel(levelID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	id := journey.ID(levelID)
	var node *journey.Node
	for i := range a.journey.Map.Nodes {
		if a.journey.Map.Nodes[i].Level.ID == id {
			node = &a.journey.Map.Nodes[i]
			break
		}
	}
	if node == nil || !node.Status.Accessible() {
		a.view.FlashStatus("Finish the previous lesson to unlock this one")
		return
	}

	level, err := a.client.Level(ctx, id)
	if err != nil {
		a.fail("lesson.load_failed", err, "Could not open the lesson")
		return
	}
	if node.Status != journey.StatusCompleted {
		if _, err := a.client.StartLevel(ctx, id); err != nil {
			a.logger.Warn("lesson.start_failed", map[string]any{"level": levelID, "error": err.Error()})
		}
	}
	a.openLessonLocked(ctx, level)
}

func (a *App) openLessonLocked(ctx context.Context, level journey.Level) {
	a.closeLessonLocked(false)

	bodies := lesson.GetBodies(level, level.Materials)
	a.lessonLevel = level
	a.lessonBodies = bodies
	view := a.view
	// The callback sees only this visit's immutable snapshot and never
	// takes a.mu: Close on the machine waits for the countdown goroutine
	// while a.mu is held.
	onChange := func(st pacing.State) {
		view.SetLesson(lessonState(level, bodies, st))
	}
	a.pacer = pacing.New(len(bodies), pacing.Options{
		Cooldown: a.cfg.PacingCooldown,
		Clock:    a.clock,
		OnChange: onChange,
	})

	subjectLevelID := ""
	if s, ok := a.journey.Subject(); ok {
		subjectLevelID = s.ID.String()
	}
	visitID, err := a.store.StartLessonVisit(ctx, state.LessonVisit{
		SessionID:      a.sessionID,
		SubjectLevelID: subjectLevelID,
		LevelID:        level.ID.String(),
		Bodies:         len(bodies),
		StartTS:        a.now(),
	})
	if err != nil {
		a.logger.Warn("lesson.visit_record_failed", map[string]any{"error": err.Error()})
	}
	a.visitID = visitID
	a.logger.Info("lesson.open", map[string]any{"level": level.ID.String(), "bodies": len(bodies)})

	view.SetLesson(lessonState(level, bodies, a.pacer.State()))
	a.showLocked(ui.ScreenLesson)
}

// emptyLessonBody stands in for a level that has neither a description nor
// materials. Such a lesson is already on its last page.
var emptyLessonBody = lesson.Body{
	Kind:        lesson.KindIntroduction,
	Content:     "This lesson has no content yet.",
	ContentType: lesson.ContentText,
}

func lessonState(level journey.Level, bodies lesson.Sequence, st pacing.State) ui.LessonState {
	body := emptyLessonBody
	last := len(bodies) == 0
	if !last {
		body = bodies.At(st.BodyIndex)
		last = bodies.IsLast(st.BodyIndex)
	}
	return ui.LessonState{
		Level:    level,
		Body:     body,
		Count:    len(bodies),
		Pacing:   st,
		IsLast:   last,
		Complete: last && st.CanContinue,
	}
}

// closeLessonLocked cancels the countdown and records the visit outcome.
func (a *App) closeLessonLocked(completed bool) {
	if a.pacer == nil {
		return
	}
	a.pacer.Close()
	a.pacer = nil
	if a.visitID > 0 {
		if err := a.store.FinishLessonVisit(context.Background(), a.visitID, completed, a.now()); err != nil {
			a.logger.Warn("lesson.visit_finish_failed", map[string]any{"error": err.Error()})
		}
	}
	a.visitID = 0
}

func (a *App) OnNextBody() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pacer == nil {
		return
	}
	if !a.pacer.NextBody() {
		st := a.pacer.State()
		if !st.CanContinue {
			a.view.FlashStatus(fmt.Sprintf("Next page unlocks in %ds", st.TimeRemaining))
		}
	}
}

// OnCompleteLevel submits the lesson once the last body's countdown is
// over, then refetches the journey and announces what was earned.
func (a *App) OnCompleteLevel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	if a.pacer == nil || !a.pacer.CanComplete() {
		a.view.SetBusy("")
		a.view.FlashStatus("Read to the end of the lesson first")
		return
	}
	level := a.lessonLevel
	res, err := a.client.CompleteLevel(ctx, level.ID)
	if err != nil {
		a.view.SetBusy("")
		a.fail("lesson.complete_failed", err, "Could not complete the lesson")
		return
	}
	a.closeLessonLocked(true)
	a.logger.Info("lesson.complete", map[string]any{"level": level.ID.String(), "points": res.PointsEarned, "achievements": len(res.Achievements)})

	a.loadJourneyLocked(ctx)
	flags, err := a.store.MarkCompletion(ctx, a.journey.Stats.CurrentStreak(), a.now())
	if err != nil {
		a.logger.Warn("completion.mark_failed", map[string]any{"error": err.Error()})
	} else {
		a.firstToday = flags.FirstCompletionToday
		a.streakStart = flags.StreakActivatedToday
	}
	a.pushJourneyLocked("")

	a.bus.Publish(events.Event{Topic: events.TopicLevelCompleted, At: a.now(), Payload: map[string]any{
		"level":  level.ID.String(),
		"points": res.PointsEarned,
	}})
	if flags.StreakActivatedToday {
		a.bus.Publish(events.Event{Topic: events.TopicStreak, At: a.now(), Payload: map[string]any{
			"previous": flags.PreviousStreak,
			"current":  a.journey.Stats.CurrentStreak(),
		}})
	}
	for _, unlock := range res.Achievements {
		rewards.Announce(a.bus, unlock)
	}

	a.showLocked(ui.ScreenJourney)
	msg := firstNonEmpty(res.Message, "Lesson completed!")
	if res.PointsEarned > 0 {
		msg = fmt.Sprintf("%s +%d points", msg, res.PointsEarned)
	}
	a.view.FlashStatus(msg)
}

func (a *App) OnBackToJourney() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLessonLocked(false)
	a.sheet = nil
	a.quizResult = nil
	a.pushJourneyLocked("")
	a.showLocked(ui.ScreenJourney)
}
