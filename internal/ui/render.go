package ui

import (
	"fmt"
	"strings"

	"edujourney/internal/api"
	"edujourney/internal/chat"
	"edujourney/internal/journey"
	"edujourney/internal/lesson"
	"edujourney/internal/onboarding"
	"edujourney/internal/rewards"

	"github.com/dustin/go-humanize"
)

// frame lays out a screen: header, body clipped to the window, status line
// and the key help of the screen.
func (r *Root) frame(title, right string, body []string) string {
	width := r.cols
	header := " " + title
	if right != "" {
		gap := width - len([]rune(header)) - len([]rune(right)) - 1
		header += strings.Repeat(" ", max(1, gap)) + right
	}
	out := []string{r.theme.Header.Render(trimForWidth(header, width))}

	bodyH := max(1, r.rows-3)
	for i := 0; i < bodyH; i++ {
		line := ""
		if i < len(body) {
			line = body[i]
		}
		out = append(out, line)
	}
	out = append(out, r.theme.Status.Render(trimForWidth(r.statusText(), width)))
	r.help.SetWidth(width)
	out = append(out, r.help.View(r.screenKeys()))
	return strings.Join(out, "\n")
}

func (r *Root) statusText() string {
	switch {
	case r.busy != "":
		return r.spin.View() + " " + r.busy + "..."
	case r.statusFlash != "":
		return r.statusFlash
	default:
		return "Ready"
	}
}

func (r *Root) renderTooSmall() string {
	return fmt.Sprintf("Terminal too small (%dx%d). Resize to at least 60x20.", r.cols, r.rows)
}

func (r *Root) glyph(ascii, fancy string) string {
	if r.ascii {
		return ascii
	}
	return fancy
}

func (r *Root) renderLogin() string {
	title := "Sign in"
	labels := []string{"Email", "Password"}
	if r.registerMode {
		title = "Create an account"
		labels = []string{"Username", "Email", "Password", "Confirm password"}
	}
	body := []string{"", r.theme.PanelTitle.Render("  EduJourney · " + title), ""}
	for i, in := range r.inputs() {
		marker := "  "
		if i == r.formFocus {
			marker = r.theme.Accent.Render(r.glyph("> ", "› "))
		}
		body = append(body, marker+r.theme.Muted.Render(labels[i]), "  "+in.View(), "")
	}
	if r.login.Notice != "" {
		body = append(body, "  "+r.theme.Completed.Render(r.login.Notice))
	}
	if r.login.Err != "" {
		body = append(body, "  "+r.theme.Fail.Render(r.login.Err))
	}
	switchHint := "New here? ctrl+r to register."
	if r.registerMode {
		switchHint = "Have an account? ctrl+r to sign in."
	}
	body = append(body, "", "  "+r.theme.Muted.Render(switchHint))
	return r.frame("EduJourney", "", body)
}

func (r *Root) renderOTP() string {
	boxes := make([]string, 0, len(r.otp.Boxes))
	for i, b := range r.otp.Boxes {
		cell := "[" + b + "]"
		if i == r.otp.Cursor {
			cell = r.theme.Accent.Render(cell)
		}
		boxes = append(boxes, cell)
	}
	body := []string{
		"",
		r.theme.PanelTitle.Render("  Verify your email"),
		"",
		"  We sent a " + fmt.Sprint(onboarding.OTPLength) + "-digit code to " + r.otp.Email + ".",
		"",
		"  " + strings.Join(boxes, " "),
		"",
	}
	if r.otp.ResendIn > 0 {
		body = append(body, "  "+r.theme.Muted.Render(fmt.Sprintf("Resend available in %ds", r.otp.ResendIn)))
	} else {
		body = append(body, "  "+r.theme.Info.Render("ctrl+r to resend the code"))
	}
	if r.otp.Err != "" {
		body = append(body, "", "  "+r.theme.Fail.Render(r.otp.Err))
	}
	return r.frame("EduJourney", "", body)
}

func (r *Root) renderProfileSetup() string {
	classID := classIDs[r.setupClass]
	grades := onboarding.GradesFor(classID)
	grade := grades[min(r.setupGrade, len(grades)-1)]
	rows := []struct {
		label string
		value string
	}{
		{"Full name", r.setupName.View()},
		{"Gender", "‹ " + genders[r.setupGender] + " ›"},
		{"Class", "‹ " + api.Profile{ClassID: classID}.ClassLabel() + " ›"},
		{"Grade", "‹ " + fmt.Sprint(grade) + " ›"},
		{"Subjects", fmt.Sprintf("%d selected", len(r.profileForm().SubjectIDs))},
	}
	body := []string{"", r.theme.PanelTitle.Render("  Complete your profile"), ""}
	for i, row := range rows {
		marker := "  "
		if i == r.setupFocus {
			marker = r.theme.Accent.Render(r.glyph("> ", "› "))
		}
		body = append(body, fmt.Sprintf("%s%-10s %s", marker, row.label, row.value))
	}
	body = append(body, "")
	for i, s := range r.setup.Subjects {
		box := "[ ]"
		if r.subjectPicked[s.ID.String()] {
			box = "[x]"
		}
		cursor := "   "
		if r.setupFocus == 4 && i == r.subjectCursor {
			cursor = r.theme.Accent.Render(" › ")
		}
		body = append(body, cursor+box+" "+s.Name)
	}
	if r.setupFocus == 4 {
		body = append(body, "", "  "+r.theme.Muted.Render("space toggles a subject"))
	}
	if r.setup.Err != "" {
		body = append(body, "", "  "+r.theme.Fail.Render(r.setup.Err))
	}
	return r.frame("EduJourney", "", body)
}

func (r *Root) userSummary() string {
	js := r.journey
	return fmt.Sprintf("%s · %s pts · streak %d · %s", js.Username, rewards.FormatScore(js.Points), js.Streak, firstNonEmptyStr(js.Rank, "#-"))
}

func (r *Root) nodeMarker(s journey.Status) string {
	switch s {
	case journey.StatusCompleted:
		return r.theme.Completed.Render(r.glyph("[x]", "●"))
	case journey.StatusCurrent:
		return r.theme.Current.Render(r.glyph("[>]", "◆"))
	default:
		return r.theme.Locked.Render(r.glyph("[ ]", "○"))
	}
}

func (r *Root) journeyPath(height int) []string {
	nodes := r.journey.Map.Nodes
	if len(nodes) == 0 {
		return []string{"  " + r.theme.Muted.Render("No lessons in this subject yet.")}
	}
	// Two rows per node, windowed around the selection.
	perPage := max(1, height/2)
	start := clamp(r.nodeIndex-perPage/2, 0, max(0, len(nodes)-perPage))
	end := min(len(nodes), start+perPage)

	var lines []string
	for i := start; i < end; i++ {
		n := nodes[i]
		cursor := "  "
		if i == r.nodeIndex {
			cursor = r.theme.Accent.Render(r.glyph("> ", "› "))
		}
		label := fmt.Sprintf("%s %s  %s", r.nodeMarker(n.Status), n.Level.Label(), n.Level.Title)
		switch n.Status {
		case journey.StatusCurrent:
			label += r.theme.Current.Render("  ← you are here")
		case journey.StatusLocked:
			label = r.theme.Locked.Render(ansiStrip(label))
		}
		if n.Level.PointsReward > 0 {
			label += r.theme.Muted.Render(fmt.Sprintf("  +%d pts", n.Level.PointsReward))
		}
		lines = append(lines, cursor+label)
		if i+1 < len(nodes) {
			conn := r.theme.Locked.Render(r.glyph(":", "┊"))
			if n.PathToNext {
				conn = r.theme.Completed.Render(r.glyph("|", "│"))
			}
			lines = append(lines, "   "+conn)
		}
	}
	return lines
}

func (r *Root) renderJourney() string {
	js := r.journey
	var tabs []string
	for i, name := range js.Subjects {
		if i == js.SubjectIndex {
			tabs = append(tabs, r.theme.Accent.Render("["+name+"]"))
		} else {
			tabs = append(tabs, r.theme.Muted.Render(" "+name+" "))
		}
	}
	m := js.Map
	bar := r.progress
	bar.SetWidth(min(40, max(10, r.cols/3)))
	body := []string{
		"  " + strings.Join(tabs, " "),
		"",
		fmt.Sprintf("  %s  %d/%d lessons", bar.ViewAs(m.Percent/100), m.Completed, m.Total),
	}
	if m.Ongoing != nil {
		body = append(body, "  "+r.theme.Info.Render(fmt.Sprintf("Continue %s · %s · reward %s pts",
			m.Ongoing.Level.Label(), m.Ongoing.Level.Title, m.Ongoing.RewardText)))
	}
	if m.FinalReached {
		body = append(body, "  "+r.theme.Podium.Render(r.glyph("** Final level reached **", "🏁 Final level reached")))
	}
	if js.FirstToday {
		msg := "First lesson of the day done!"
		if js.StreakStarted {
			msg += " Your streak has started."
		}
		body = append(body, "  "+r.theme.Completed.Render(msg))
	}
	if js.Err != "" {
		body = append(body, "  "+r.theme.Fail.Render(js.Err))
	}
	body = append(body, "")

	path := r.journeyPath(r.rows - 4 - len(body))
	if r.layout == LayoutWide {
		side := []string{
			r.theme.PanelTitle.Render("Stats"),
			"Points  " + rewards.FormatScore(js.Points),
			fmt.Sprintf("Streak  %d day%s", js.Streak, plural(js.Streak)),
			"Rank    " + firstNonEmptyStr(js.Rank, "#-"),
		}
		if js.Unread > 0 {
			side = append(side, r.theme.Current.Render(fmt.Sprintf("%d unread notification%s", js.Unread, plural(js.Unread))))
		}
		path = sideBySide(path, side, r.cols*2/3)
	}
	return r.frame("Journey", r.userSummary(), append(body, path...))
}

func (r *Root) renderLesson() string {
	st := r.lesson
	body := []string{
		r.theme.PanelTitle.Render(fmt.Sprintf("  %s · %s", st.Level.Label(), st.Level.Title)),
		r.theme.Muted.Render(fmt.Sprintf("  Page %d of %d", st.Body.Index+1, max(1, st.Count))),
		"",
	}
	text := r.bodyLines(st.Body)
	avail := max(1, r.rows-4-len(body)-2)
	scroll := clamp(r.lessonScroll, 0, max(0, len(text)-avail))
	r.lessonScroll = scroll
	body = append(body, text[scroll:min(len(text), scroll+avail)]...)
	for len(body) < r.rows-5 {
		body = append(body, "")
	}
	body = append(body, "  "+r.lessonPrompt())
	return r.frame("Lesson", r.userSummary(), body)
}

func (r *Root) lessonPrompt() string {
	st := r.lesson
	switch {
	case st.IsLast && st.Complete:
		return r.theme.Completed.Render("Press space to complete the lesson")
	case st.IsLast:
		return r.theme.Current.Render(fmt.Sprintf("%s Completion unlocks in %ds", r.spin.View(), st.Pacing.TimeRemaining))
	case st.Pacing.CanContinue:
		return r.theme.Completed.Render("Press space to continue")
	default:
		return r.theme.Current.Render(fmt.Sprintf("%s Next page in %ds", r.spin.View(), st.Pacing.TimeRemaining))
	}
}

// bodyLines renders one lesson body. Markdown output is cached per body.
func (r *Root) bodyLines(b lesson.Body) []string {
	cacheKey := fmt.Sprintf("%s/%d/%s", r.lesson.Level.ID, b.Index, b.ID)
	out, ok := r.rendered[cacheKey]
	if !ok {
		var sb strings.Builder
		if b.Kind == lesson.KindIntroduction {
			sb.WriteString("# " + b.Title + "\n\n")
		}
		sb.WriteString(b.Text())
		if b.ContentType == lesson.ContentVideo || b.ResourceURL != "" {
			sb.WriteString("\n\n▶ Video: " + b.ResourceURL)
		}
		if len(b.Resources) > 0 {
			sb.WriteString("\n\n**Resources**\n\n")
			for _, res := range b.Resources {
				sb.WriteString("- " + firstNonEmptyStr(res.Title, res.URL) + " " + res.URL + "\n")
			}
		}
		out = sb.String()
		if r.markdown != nil {
			if rendered, err := r.markdown.Render(out); err == nil {
				out = rendered
			}
		}
		r.rendered[cacheKey] = out
	}
	return strings.Split(strings.TrimRight(out, "\n"), "\n")
}

func (r *Root) renderQuiz() string {
	q := r.quiz
	body := []string{r.theme.PanelTitle.Render("  Quiz · " + q.Level.Title), ""}
	if q.Result != nil {
		style := r.theme.Fail
		if q.Result.Passed {
			style = r.theme.Completed
		}
		body = append(body, "  "+style.Render(q.Result.Summary()))
		if q.Result.Points > 0 {
			body = append(body, fmt.Sprintf("  +%d points", q.Result.Points))
		}
		body = append(body, "", "  "+r.theme.Muted.Render("enter to return to your journey"))
		return r.frame("Quiz", r.userSummary(), body)
	}
	if len(q.Sheet) == 0 {
		body = append(body, "  "+r.theme.Muted.Render("This lesson has no quiz."))
	}
	for i, question := range q.Sheet {
		cursor := "  "
		if i == r.quizIndex {
			cursor = r.theme.Accent.Render(r.glyph("> ", "› "))
		}
		body = append(body, fmt.Sprintf("%s%d. %s", cursor, i+1, question.Question))
		chosen := -1
		if i < len(q.Choices) {
			chosen = q.Choices[i]
		}
		for j, opt := range question.Options {
			mark := "( )"
			if j == chosen {
				mark = r.theme.Accent.Render("(•)")
			}
			body = append(body, fmt.Sprintf("     %s %d) %s", mark, j+1, opt))
		}
		body = append(body, "")
	}
	if q.Err != "" {
		body = append(body, "  "+r.theme.Fail.Render(q.Err))
	}
	return r.frame("Quiz", r.userSummary(), body)
}

func (r *Root) renderLeaderboard() string {
	lb := r.board
	kind := "Total"
	if lb.Kind == api.LeaderboardWeekly {
		kind = "Weekly"
	}
	body := []string{r.theme.PanelTitle.Render("  Leaderboard · " + kind), ""}
	medals := []string{r.glyph("1st", "🥇"), r.glyph("2nd", "🥈"), r.glyph("3rd", "🥉")}
	for i, p := range lb.Board.Podium {
		body = append(body, fmt.Sprintf("  %s %s  %s pts", medals[i], r.theme.Podium.Render(p.Name(true)), rewards.FormatScore(p.Points)))
	}
	if len(lb.Board.Podium) > 0 {
		body = append(body, "")
	}
	for _, p := range lb.Board.Rows {
		body = append(body, fmt.Sprintf("  %3d  %-24s %8s pts", p.Rank, trimForWidth(p.Name(false), 24), rewards.FormatScore(p.Points)))
	}
	if len(lb.Board.Podium) == 0 && len(lb.Board.Rows) == 0 {
		body = append(body, "  "+r.theme.Muted.Render("No one is on the board yet."))
	}
	body = append(body, "", "  "+r.theme.Accent.Render(fmt.Sprintf("Your rank %s · %s pts", lb.Rank.Label(), rewards.FormatScore(lb.Rank.Points))))
	if lb.Err != "" {
		body = append(body, "  "+r.theme.Fail.Render(lb.Err))
	}
	return r.frame("Leaderboard", r.userSummary(), body)
}

func (r *Root) renderAchievements() string {
	items := r.achievements.Items
	done := 0
	for _, a := range items {
		if a.Completed {
			done++
		}
	}
	body := []string{
		r.theme.PanelTitle.Render(fmt.Sprintf("  Achievements · %d/%d unlocked", done, len(items))),
		"",
	}
	for _, a := range items[min(r.achieveOffset, len(items)):] {
		line := r.theme.Completed.Render(r.glyph("[x]", "★")) + " " + a.Title
		if !a.Completed {
			line = r.theme.Locked.Render(r.glyph("[ ] ", "☆ ") + a.Title + "  (locked)")
		}
		if a.PointsReward > 0 {
			line += r.theme.Muted.Render(fmt.Sprintf("  +%d pts", a.PointsReward))
		}
		if when := a.AwardedText(r.achievements.Now); when != "" {
			line += r.theme.Muted.Render(" · awarded " + when)
		}
		body = append(body, "  "+line)
		if a.Description != "" {
			body = append(body, "      "+r.theme.Muted.Render(a.Description))
		}
	}
	if len(items) == 0 {
		body = append(body, "  "+r.theme.Muted.Render("No achievements available."))
	}
	if r.achievements.Err != "" {
		body = append(body, "", "  "+r.theme.Fail.Render(r.achievements.Err))
	}
	return r.frame("Achievements", r.userSummary(), body)
}

func (r *Root) renderChat() string {
	snap := r.chat.Snapshot
	title := "New chat"
	if snap.Current != nil {
		title = firstNonEmptyStr(snap.Current.Title, title)
	}
	body := []string{r.theme.PanelTitle.Render("  Tutor · " + title)}
	if r.chat.Context != "" {
		body = append(body, "  "+r.theme.Muted.Render("About: "+r.chat.Context))
	}
	if len(snap.Sessions) > 1 {
		body = append(body, "  "+r.theme.Muted.Render(fmt.Sprintf("%d chats · tab to switch", len(snap.Sessions))))
	}
	body = append(body, "")

	var msgs []string
	width := max(20, r.cols-12)
	for _, m := range snap.Messages {
		who := r.theme.Accent.Render("You")
		if m.Sender == chat.SenderBot {
			who = r.theme.Current.Render("Tutor")
		}
		for i, line := range wrapText(m.Message, width) {
			if i == 0 {
				msgs = append(msgs, "  "+who+": "+line)
			} else {
				msgs = append(msgs, "        "+line)
			}
		}
	}
	if snap.Loading {
		msgs = append(msgs, "  "+r.spin.View()+" Tutor is typing...")
	}
	avail := max(1, r.rows-4-len(body)-3)
	if len(msgs) > avail {
		msgs = msgs[len(msgs)-avail:]
	}
	body = append(body, msgs...)
	for len(body) < r.rows-6 {
		body = append(body, "")
	}
	if snap.Err != "" {
		body = append(body, "  "+r.theme.Fail.Render(snap.Err))
	}
	body = append(body, "  "+r.chatInput.View())
	return r.frame("Tutor", r.userSummary(), body)
}

func (r *Root) renderProfile() string {
	ps := r.profile
	p := ps.Profile
	name := firstNonEmptyStr(p.FullName, ps.User.DisplayName())
	class := p.ClassLabel()
	if class != "" && p.GradeLevelID > 0 {
		class = fmt.Sprintf("%s grade %d", class, p.GradeLevelID)
	}
	points := ps.Stats.TotalPoints()
	if points == 0 {
		points = p.Points.Total
	}
	body := []string{
		r.theme.PanelTitle.Render("  " + name),
		"  " + r.theme.Muted.Render("@"+ps.User.Username+" · "+ps.User.Email),
		"",
		"  Class        " + firstNonEmptyStr(class, "-"),
		"  Points       " + humanize.Comma(int64(points)) + fmt.Sprintf(" (this week %s)", humanize.Comma(int64(p.Points.Weekly))),
		fmt.Sprintf("  Streak       %d (longest %d)", ps.Stats.CurrentStreak(), max(p.Streak.Longest, ps.Stats.CurrentStreak())),
		fmt.Sprintf("  Lessons      %d completed, %d in progress", ps.Stats.CompletedLevels, ps.Stats.InProgress),
		fmt.Sprintf("  On device    %d visits, %d finished", ps.Visits, ps.Completed),
		"",
	}
	avatar := firstNonEmptyStr(p.AvatarURL, "(none)")
	if r.avatarEditing {
		body = append(body, "  Avatar URL", "  "+r.avatarInput.View())
	} else {
		body = append(body, "  Avatar       "+avatar)
	}
	body = append(body, "", r.theme.PanelTitle.Render("  Notifications"))
	if len(ps.Notifications) == 0 {
		body = append(body, "  "+r.theme.Muted.Render("Nothing new."))
	}
	for _, n := range ps.Notifications {
		mark := "  "
		if !n.IsRead {
			mark = r.theme.Current.Render(r.glyph("* ", "• "))
		}
		body = append(body, "  "+mark+n.Title+r.theme.Muted.Render("  "+n.Message))
	}
	if ps.Err != "" {
		body = append(body, "", "  "+r.theme.Fail.Render(ps.Err))
	}
	return r.frame("Profile", r.userSummary(), body)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func firstNonEmptyStr(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// wrapText breaks s into lines of at most width runes on word boundaries.
func wrapText(s string, width int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case len([]rune(line))+1+len([]rune(word)) > width:
				lines = append(lines, line)
				line = word
			default:
				line += " " + word
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// sideBySide places right next to left starting at column col.
func sideBySide(left, right []string, col int) []string {
	n := max(len(left), len(right))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		l, rr := "", ""
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			rr = right[i]
		}
		pad := col - visibleWidth(l)
		out[i] = l + strings.Repeat(" ", max(1, pad)) + rr
	}
	return out
}
