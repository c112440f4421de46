package ui

import (
	"fmt"
	"strings"

	"edujourney/internal/api"
	"edujourney/internal/onboarding"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// screenKeys is the help.KeyMap shown in the footer of one screen.
type screenKeys struct {
	bindings []key.Binding
}

func (k screenKeys) ShortHelp() []key.Binding { return k.bindings }

func (k screenKeys) FullHelp() [][]key.Binding {
	var out [][]key.Binding
	for i := 0; i < len(k.bindings); i += 4 {
		out = append(out, k.bindings[i:min(i+4, len(k.bindings))])
	}
	return out
}

type keyMaps struct {
	Quit     key.Binding
	Help     key.Binding
	Back     key.Binding
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Enter    key.Binding
	NextFld  key.Binding
	PrevFld  key.Binding
	Register key.Binding
	Resend   key.Binding

	PrevSubject  key.Binding
	NextSubject  key.Binding
	Leaderboard  key.Binding
	Achievements key.Binding
	Chat         key.Binding
	Profile      key.Binding
	Refresh      key.Binding
	Logout       key.Binding

	Continue key.Binding
	Quiz     key.Binding
	Toggle   key.Binding
	NewChat  key.Binding
	Avatar   key.Binding
	ReadAll  key.Binding
	Dismiss  key.Binding
}

func newKeyMaps() keyMaps {
	return keyMaps{
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+q", "quit")),
		Help:     key.NewBinding(key.WithKeys("f1", "?"), key.WithHelp("?", "help")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		NextFld:  key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		PrevFld:  key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		Register: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "sign in / register")),
		Resend:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "resend code")),

		PrevSubject:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev subject")),
		NextSubject:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next subject")),
		Leaderboard:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "leaderboard")),
		Achievements: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "achievements")),
		Chat:         key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "ask tutor")),
		Profile:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "profile")),
		Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Logout:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "log out")),

		Continue: key.NewBinding(key.WithKeys("space", "enter", "right"), key.WithHelp("space", "continue")),
		Quiz:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quiz")),
		Toggle:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "total/weekly")),
		NewChat:  key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		Avatar:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit avatar")),
		ReadAll:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mark all read")),
		Dismiss:  key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "dismiss toast")),
	}
}

func (r *Root) screenKeys() screenKeys {
	k := r.keys
	switch r.screen {
	case ScreenLogin:
		return screenKeys{[]key.Binding{k.NextFld, k.Enter, k.Register, k.Quit}}
	case ScreenOTP:
		return screenKeys{[]key.Binding{k.Resend, k.Back, k.Quit}}
	case ScreenProfileSetup:
		return screenKeys{[]key.Binding{k.NextFld, k.Left, k.Right, k.Enter, k.Back}}
	case ScreenLesson:
		return screenKeys{[]key.Binding{k.Continue, k.Up, k.Down, k.Quiz, k.Chat, k.Back, k.Help}}
	case ScreenQuiz:
		return screenKeys{[]key.Binding{k.Up, k.Down, k.Left, k.Right, k.Enter, k.Back}}
	case ScreenLeaderboard:
		return screenKeys{[]key.Binding{k.Toggle, k.Refresh, k.Back, k.Help}}
	case ScreenAchievements:
		return screenKeys{[]key.Binding{k.Up, k.Down, k.Back, k.Help}}
	case ScreenChat:
		return screenKeys{[]key.Binding{k.Enter, k.Toggle, k.NewChat, k.Back}}
	case ScreenProfile:
		return screenKeys{[]key.Binding{k.Avatar, k.ReadAll, k.Logout, k.Back, k.Help}}
	default:
		return screenKeys{[]key.Binding{k.Up, k.Down, k.Enter, k.PrevSubject, k.NextSubject, k.Leaderboard, k.Achievements, k.Chat, k.Profile, k.Refresh, k.Logout, k.Help}}
	}
}

// textScreen reports whether printable keys go to a text field.
func (r *Root) textScreen() bool {
	switch r.screen {
	case ScreenLogin, ScreenChat:
		return true
	case ScreenProfileSetup:
		return r.setupFocus == 0
	case ScreenProfile:
		return r.avatarEditing
	}
	return false
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("key:%s", msg.String()))

	if key.Matches(msg, r.keys.Quit) {
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}
	if key.Matches(msg, r.keys.Dismiss) && len(r.activeToasts) > 0 {
		top := r.activeToasts[len(r.activeToasts)-1]
		r.toasts.Dismiss(top.ID)
		r.pollToasts()
		return r, nil
	}
	if r.overlayActive() {
		return r.handleOverlayKey(msg)
	}
	if msg.String() == "f1" || (msg.String() == "?" && !r.textScreen()) {
		r.helpOpen = true
		return r, nil
	}
	r.statusFlash = ""

	switch r.screen {
	case ScreenLogin:
		return r.handleLoginKey(msg)
	case ScreenOTP:
		return r.handleOTPKey(msg)
	case ScreenProfileSetup:
		return r.handleProfileSetupKey(msg)
	case ScreenLesson:
		return r.handleLessonKey(msg)
	case ScreenQuiz:
		return r.handleQuizKey(msg)
	case ScreenLeaderboard:
		return r.handleLeaderboardKey(msg)
	case ScreenAchievements:
		return r.handleAchievementsKey(msg)
	case ScreenChat:
		return r.handleChatKey(msg)
	case ScreenProfile:
		return r.handleProfileKey(msg)
	default:
		return r.handleJourneyKey(msg)
	}
}

func (r *Root) handleOverlayKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, r.keys.Back) || (r.helpOpen && (msg.String() == "?" || msg.String() == "q")) {
		r.closeTopOverlay()
		return r, nil
	}
	if r.confirmOpen {
		switch {
		case key.Matches(msg, r.keys.Left), key.Matches(msg, r.keys.Up):
			r.confirmIndex = 0
		case key.Matches(msg, r.keys.Right), key.Matches(msg, r.keys.Down), msg.String() == "tab":
			r.confirmIndex = 1
		case msg.String() == "y":
			r.confirmIndex = 0
			r.confirmComplete()
		case msg.String() == "n":
			r.confirmOpen = false
		case key.Matches(msg, r.keys.Enter):
			if r.confirmIndex == 0 {
				r.confirmComplete()
			} else {
				r.confirmOpen = false
			}
		}
	}
	return r, nil
}

func (r *Root) confirmComplete() {
	r.confirmOpen = false
	r.busy = "Completing lesson"
	r.dispatchController(func(c Controller) { c.OnCompleteLevel() })
}

// inputs returns the text fields of the login screen in its current mode.
func (r *Root) inputs() []textinput.Model {
	if r.registerMode {
		return r.registerInputs
	}
	return r.loginInputs
}

func (r *Root) focusedInput() *textinput.Model {
	switch r.screen {
	case ScreenLogin:
		fields := r.inputs()
		if r.formFocus >= 0 && r.formFocus < len(fields) {
			return &fields[r.formFocus]
		}
	case ScreenProfileSetup:
		if r.setupFocus == 0 {
			return &r.setupName
		}
	case ScreenChat:
		return &r.chatInput
	case ScreenProfile:
		if r.avatarEditing {
			return &r.avatarInput
		}
	}
	return nil
}

// focusForm moves the text cursor to the field the current screen expects
// input in and blurs every other field.
func (r *Root) focusForm() {
	for i := range r.loginInputs {
		r.loginInputs[i].Blur()
	}
	for i := range r.registerInputs {
		r.registerInputs[i].Blur()
	}
	r.setupName.Blur()
	r.chatInput.Blur()
	r.avatarInput.Blur()
	if in := r.focusedInput(); in != nil {
		in.Focus()
	}
}

func (r *Root) updateFocused(msg tea.Msg) tea.Cmd {
	in := r.focusedInput()
	if in == nil {
		return nil
	}
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	return cmd
}

func (r *Root) handleLoginKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	fields := r.inputs()
	switch {
	case key.Matches(msg, r.keys.Register):
		r.registerMode = !r.registerMode
		r.formFocus = 0
		r.login.Err = ""
		r.login.Notice = ""
		r.focusForm()
		return r, nil
	case key.Matches(msg, r.keys.NextFld):
		r.formFocus = wrapIndex(r.formFocus+1, len(fields))
		r.focusForm()
		return r, nil
	case key.Matches(msg, r.keys.PrevFld):
		r.formFocus = wrapIndex(r.formFocus-1, len(fields))
		r.focusForm()
		return r, nil
	case key.Matches(msg, r.keys.Enter):
		if r.formFocus < len(fields)-1 {
			r.formFocus++
			r.focusForm()
			return r, nil
		}
		r.submitLogin()
		return r, nil
	}
	return r, r.updateFocused(msg)
}

func (r *Root) submitLogin() {
	if r.busy != "" {
		return
	}
	r.login.Err = ""
	r.login.Notice = ""
	if r.registerMode {
		form := RegisterForm{
			Username:        strings.TrimSpace(r.registerInputs[0].Value()),
			Email:           strings.TrimSpace(r.registerInputs[1].Value()),
			Password:        r.registerInputs[2].Value(),
			ConfirmPassword: r.registerInputs[3].Value(),
		}
		if msg := onboarding.ValidateRegister(api.RegisterInput(form)); msg != "" {
			r.login.Err = msg
			return
		}
		r.busy = "Creating account"
		r.dispatchController(func(c Controller) { c.OnRegister(form) })
		return
	}
	email := strings.TrimSpace(r.loginInputs[0].Value())
	password := r.loginInputs[1].Value()
	if email == "" || password == "" {
		r.login.Err = "Email and password are required"
		return
	}
	r.busy = "Signing in"
	r.dispatchController(func(c Controller) { c.OnLogin(email, password) })
}

func (r *Root) handleOTPKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, r.keys.Resend):
		r.dispatchController(func(c Controller) { c.OnResendOTP() })
	case key.Matches(msg, r.keys.Back):
		r.dispatchController(func(c Controller) { c.OnLogout() })
	case msg.String() == "backspace":
		r.dispatchController(func(c Controller) { c.OnOTPBackspace() })
	default:
		if text := msg.Text; len(text) == 1 && text[0] >= '0' && text[0] <= '9' {
			digit := rune(text[0])
			r.dispatchController(func(c Controller) { c.OnOTPInput(digit) })
		}
	}
	return r, nil
}

var genders = []string{"male", "female"}

var classIDs = []int{onboarding.ClassSD, onboarding.ClassSMP, onboarding.ClassSMA}

const setupFields = 5

func (r *Root) loadProfileDraft(d ProfileForm) {
	r.setupName.SetValue(d.FullName)
	r.setupGender = 0
	for i, g := range genders {
		if g == d.Gender {
			r.setupGender = i
		}
	}
	r.setupClass = 0
	for i, c := range classIDs {
		if c == d.ClassID {
			r.setupClass = i
		}
	}
	r.setupGrade = 0
	for i, g := range onboarding.GradesFor(classIDs[r.setupClass]) {
		if g == d.GradeLevelID {
			r.setupGrade = i
		}
	}
	r.subjectPicked = map[string]bool{}
	for _, id := range d.SubjectIDs {
		r.subjectPicked[id] = true
	}
	r.setupFocus = 0
	r.focusForm()
}

// profileForm reads the setup screen into a submission.
func (r *Root) profileForm() ProfileForm {
	classID := classIDs[r.setupClass]
	grades := onboarding.GradesFor(classID)
	form := ProfileForm{
		FullName:     strings.TrimSpace(r.setupName.Value()),
		Gender:       genders[r.setupGender],
		ClassID:      classID,
		GradeLevelID: grades[min(r.setupGrade, len(grades)-1)],
	}
	for _, s := range r.setup.Subjects {
		if r.subjectPicked[s.ID.String()] {
			form.SubjectIDs = append(form.SubjectIDs, s.ID.String())
		}
	}
	return form
}

func (r *Root) handleProfileSetupKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, r.keys.Back):
		r.dispatchController(func(c Controller) { c.OnLogout() })
		return r, nil
	case msg.String() == "tab":
		r.setupFocus = wrapIndex(r.setupFocus+1, setupFields)
		r.focusForm()
		return r, nil
	case msg.String() == "shift+tab":
		r.setupFocus = wrapIndex(r.setupFocus-1, setupFields)
		r.focusForm()
		return r, nil
	case key.Matches(msg, r.keys.Enter):
		if r.busy != "" {
			return r, nil
		}
		form := r.profileForm()
		r.setup.Err = ""
		r.busy = "Saving profile"
		r.dispatchController(func(c Controller) { c.OnSubmitProfile(form) })
		return r, nil
	}
	if r.setupFocus == 0 {
		return r, r.updateFocused(msg)
	}

	delta := 0
	switch msg.String() {
	case "left", "h":
		delta = -1
	case "right", "l":
		delta = 1
	}
	switch r.setupFocus {
	case 1:
		r.setupGender = wrapIndex(r.setupGender+delta, len(genders))
	case 2:
		if delta != 0 {
			r.setupClass = wrapIndex(r.setupClass+delta, len(classIDs))
			r.setupGrade = 0
		}
	case 3:
		r.setupGrade = wrapIndex(r.setupGrade+delta, len(onboarding.GradesFor(classIDs[r.setupClass])))
	case 4:
		switch {
		case key.Matches(msg, r.keys.Up):
			r.subjectCursor = wrapIndex(r.subjectCursor-1, len(r.setup.Subjects))
		case key.Matches(msg, r.keys.Down):
			r.subjectCursor = wrapIndex(r.subjectCursor+1, len(r.setup.Subjects))
		case msg.String() == "space":
			if r.subjectCursor < len(r.setup.Subjects) {
				id := r.setup.Subjects[r.subjectCursor].ID.String()
				r.subjectPicked[id] = !r.subjectPicked[id]
			}
		}
	}
	return r, nil
}

func (r *Root) moveNode(delta int) {
	n := len(r.journey.Map.Nodes)
	if n == 0 {
		r.nodeIndex = 0
		return
	}
	r.nodeIndex = clamp(r.nodeIndex+delta, 0, n-1)
}

func (r *Root) handleJourneyKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := r.keys
	switch {
	case key.Matches(msg, k.Up):
		r.moveNode(-1)
	case key.Matches(msg, k.Down):
		r.moveNode(1)
	case key.Matches(msg, k.Enter):
		nodes := r.journey.Map.Nodes
		if r.nodeIndex >= len(nodes) {
			return r, nil
		}
		node := nodes[r.nodeIndex]
		if !node.Status.Accessible() {
			r.statusFlash = "Finish the previous lesson to unlock this one"
			return r, nil
		}
		r.busy = "Opening lesson"
		id := node.Level.ID.String()
		r.dispatchController(func(c Controller) { c.OnOpenLevel(id) })
	case key.Matches(msg, k.PrevSubject), key.Matches(msg, k.NextSubject):
		n := len(r.journey.Subjects)
		if n < 2 {
			return r, nil
		}
		delta := 1
		if key.Matches(msg, k.PrevSubject) {
			delta = -1
		}
		idx := wrapIndex(r.journey.SubjectIndex+delta, n)
		r.busy = "Loading " + r.journey.Subjects[idx]
		r.dispatchController(func(c Controller) { c.OnSelectSubject(idx) })
	case key.Matches(msg, k.Leaderboard):
		r.dispatchController(func(c Controller) { c.OnOpenLeaderboard("") })
	case key.Matches(msg, k.Achievements):
		r.dispatchController(func(c Controller) { c.OnOpenAchievements() })
	case key.Matches(msg, k.Chat):
		r.dispatchController(func(c Controller) { c.OnOpenChat() })
	case key.Matches(msg, k.Profile):
		r.dispatchController(func(c Controller) { c.OnOpenProfile() })
	case key.Matches(msg, k.Refresh):
		r.busy = "Refreshing"
		r.dispatchController(func(c Controller) { c.OnRefresh() })
	case key.Matches(msg, k.Logout):
		r.dispatchController(func(c Controller) { c.OnLogout() })
	}
	return r, nil
}

func (r *Root) handleLessonKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := r.keys
	switch {
	case key.Matches(msg, k.Back):
		r.dispatchController(func(c Controller) { c.OnBackToJourney() })
	case key.Matches(msg, k.Continue):
		r.advanceLesson()
	case key.Matches(msg, k.Up):
		r.lessonScroll = max(0, r.lessonScroll-1)
	case key.Matches(msg, k.Down):
		r.lessonScroll++
	case key.Matches(msg, k.Quiz):
		r.busy = "Loading quiz"
		r.dispatchController(func(c Controller) { c.OnOpenQuiz() })
	case key.Matches(msg, k.Chat):
		r.dispatchController(func(c Controller) { c.OnOpenChat() })
	}
	return r, nil
}

// advanceLesson moves to the next body, or asks to complete the lesson on
// the last one. Both wait for the countdown.
func (r *Root) advanceLesson() {
	if r.busy != "" {
		return
	}
	st := r.lesson
	if st.IsLast {
		if st.Complete {
			r.confirmOpen = true
			r.confirmIndex = 0
			return
		}
		r.statusFlash = fmt.Sprintf("Keep reading: you can finish in %ds", st.Pacing.TimeRemaining)
		return
	}
	if !st.Pacing.CanContinue {
		r.statusFlash = fmt.Sprintf("Next page unlocks in %ds", st.Pacing.TimeRemaining)
		return
	}
	r.dispatchController(func(c Controller) { c.OnNextBody() })
}

func (r *Root) handleQuizKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := r.keys
	n := len(r.quiz.Sheet)
	switch {
	case key.Matches(msg, k.Back):
		r.dispatchController(func(c Controller) { c.OnBackToJourney() })
		return r, nil
	case r.quiz.Result != nil:
		if key.Matches(msg, k.Enter) {
			r.dispatchController(func(c Controller) { c.OnBackToJourney() })
		}
		return r, nil
	case n == 0:
		return r, nil
	case key.Matches(msg, k.Up):
		r.quizIndex = wrapIndex(r.quizIndex-1, n)
	case key.Matches(msg, k.Down):
		r.quizIndex = wrapIndex(r.quizIndex+1, n)
	case key.Matches(msg, k.Left), key.Matches(msg, k.Right):
		q := r.quizIndex
		options := len(r.quiz.Sheet[q].Options)
		if options == 0 {
			return r, nil
		}
		delta := 1
		if key.Matches(msg, k.Left) {
			delta = -1
		}
		cur := -1
		if q < len(r.quiz.Choices) {
			cur = r.quiz.Choices[q]
		}
		if cur < 0 && delta < 0 {
			cur = 0
		}
		choice := wrapIndex(cur+delta, options)
		r.dispatchController(func(c Controller) { c.OnChooseAnswer(q, choice) })
	case key.Matches(msg, k.Enter):
		r.busy = "Submitting answers"
		r.dispatchController(func(c Controller) { c.OnSubmitQuiz() })
	default:
		if text := msg.Text; len(text) == 1 && text[0] >= '1' && text[0] <= '9' {
			q, choice := r.quizIndex, int(text[0]-'1')
			if choice < len(r.quiz.Sheet[q].Options) {
				r.dispatchController(func(c Controller) { c.OnChooseAnswer(q, choice) })
			}
		}
	}
	return r, nil
}

func (r *Root) handleLeaderboardKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, r.keys.Back):
		r.dispatchController(func(c Controller) { c.OnBackToJourney() })
	case key.Matches(msg, r.keys.Toggle):
		kind := api.LeaderboardWeekly
		if r.board.Kind == api.LeaderboardWeekly {
			kind = api.LeaderboardTotal
		}
		r.busy = "Loading leaderboard"
		r.dispatchController(func(c Controller) { c.OnOpenLeaderboard(kind) })
	case key.Matches(msg, r.keys.Refresh):
		kind := r.board.Kind
		r.dispatchController(func(c Controller) { c.OnOpenLeaderboard(kind) })
	}
	return r, nil
}

func (r *Root) handleAchievementsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	last := max(0, len(r.achievements.Items)-1)
	switch {
	case key.Matches(msg, r.keys.Back):
		r.dispatchController(func(c Controller) { c.OnBackToJourney() })
	case key.Matches(msg, r.keys.Up):
		r.achieveOffset = clamp(r.achieveOffset-1, 0, last)
	case key.Matches(msg, r.keys.Down):
		r.achieveOffset = clamp(r.achieveOffset+1, 0, last)
	}
	return r, nil
}

func (r *Root) handleChatKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, r.keys.Back):
		r.dispatchController(func(c Controller) { c.OnBackToJourney() })
		return r, nil
	case key.Matches(msg, r.keys.NewChat):
		r.dispatchController(func(c Controller) { c.OnNewChat() })
		return r, nil
	case key.Matches(msg, r.keys.Toggle):
		sessions := r.chat.Snapshot.Sessions
		if len(sessions) == 0 {
			return r, nil
		}
		cur := -1
		if r.chat.Snapshot.Current != nil {
			for i, s := range sessions {
				if s.ID == r.chat.Snapshot.Current.ID {
					cur = i
				}
			}
		}
		next := wrapIndex(cur+1, len(sessions))
		r.dispatchController(func(c Controller) { c.OnSelectChatSession(next) })
		return r, nil
	case key.Matches(msg, r.keys.Enter):
		text := strings.TrimSpace(r.chatInput.Value())
		if text == "" || r.chat.Snapshot.Loading {
			return r, nil
		}
		r.chatInput.SetValue("")
		r.dispatchController(func(c Controller) { c.OnSendChat(text) })
		return r, nil
	}
	return r, r.updateFocused(msg)
}

func (r *Root) handleProfileKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if r.avatarEditing {
		switch {
		case key.Matches(msg, r.keys.Back):
			r.avatarEditing = false
			r.avatarInput.SetValue(r.profile.Profile.AvatarURL)
			r.focusForm()
			return r, nil
		case key.Matches(msg, r.keys.Enter):
			url := strings.TrimSpace(r.avatarInput.Value())
			r.avatarEditing = false
			r.focusForm()
			r.busy = "Saving avatar"
			r.dispatchController(func(c Controller) { c.OnUpdateAvatar(url) })
			return r, nil
		}
		return r, r.updateFocused(msg)
	}
	switch {
	case key.Matches(msg, r.keys.Back):
		r.dispatchController(func(c Controller) { c.OnBackToJourney() })
	case key.Matches(msg, r.keys.Avatar):
		r.avatarEditing = true
		r.focusForm()
	case key.Matches(msg, r.keys.ReadAll):
		r.dispatchController(func(c Controller) { c.OnMarkAllRead() })
	case key.Matches(msg, r.keys.Logout):
		r.dispatchController(func(c Controller) { c.OnLogout() })
	}
	return r, nil
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
