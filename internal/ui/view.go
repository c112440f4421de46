package ui

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"edujourney/internal/events"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"
)

type applyMsg struct {
	fn func(*Root)
}

type drawMsg struct{}
type clockMsg time.Time
type animateMsg time.Time

type Root struct {
	theme        Theme
	ascii        bool
	debug        bool
	ctrl         Controller
	styleVariant string
	motionLevel  string
	mouseScope   string

	mu      sync.Mutex
	program *tea.Program
	running bool

	screen Screen
	layout LayoutMode
	cols   int
	rows   int

	login          LoginState
	registerMode   bool
	loginInputs    []textinput.Model
	registerInputs []textinput.Model
	formFocus      int

	otp OTPState

	setup         ProfileSetupState
	setupLoaded   bool
	setupName     textinput.Model
	setupFocus    int
	setupGender   int
	setupClass    int
	setupGrade    int
	subjectCursor int
	subjectPicked map[string]bool

	journey   JourneyState
	nodeIndex int

	lesson       LessonState
	lessonScroll int
	rendered     map[string]string

	quiz      QuizState
	quizIndex int

	board          LeaderboardState
	achievements   AchievementsState
	achieveOffset  int
	chat           ChatState
	chatInput      textinput.Model
	profile        ProfileState
	avatarInput    textinput.Model
	avatarEditing  bool
	busy           string
	statusFlash    string
	helpOpen       bool
	confirmOpen    bool
	confirmIndex   int
	toasts         *events.Toasts
	activeToasts   []events.Toast
	toastShown     string
	toastPos       float64
	toastVel       float64
	spring         harmonica.Spring
	help           help.Model
	keys           keyMaps
	progress       progress.Model
	spin           spinner.Model
	markdown       *glamour.TermRenderer
	logger         *clog.Logger
	drawPending    atomic.Bool
	lastInputEvent string
}

type Options struct {
	ASCIIOnly    bool
	Debug        bool
	StyleVariant string
	MotionLevel  string
	MouseScope   string
	// Toasts is polled once a second for achievement toasts to show.
	Toasts *events.Toasts
}

func New(opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "edujourney-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(78),
	)
	if err != nil {
		renderer = nil
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	motionLevel := normalizeMotionLevel(opts.MotionLevel)
	styleVariant := normalizeStyleVariant(opts.StyleVariant)
	theme := ThemeForVariant(styleVariant)
	spring := harmonica.NewSpring(harmonica.FPS(60), 10.0, 0.8)
	switch motionLevel {
	case "reduced":
		spring = harmonica.NewSpring(harmonica.FPS(30), 9.0, 0.92)
	case "off":
		spring = harmonica.NewSpring(harmonica.FPS(60), 1000.0, 1.0)
	}
	bar := progress.New(
		progress.WithWidth(30),
		progress.WithColors(lipgloss.Color("#5EC2FF"), lipgloss.Color("#79E6A6"), lipgloss.Color("#F2D16B")),
		progress.WithScaled(true),
	)
	spin := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Accent),
	)

	r := &Root{
		theme:         theme,
		ascii:         opts.ASCIIOnly,
		debug:         opts.Debug,
		styleVariant:  styleVariant,
		motionLevel:   motionLevel,
		mouseScope:    normalizeMouseScope(opts.MouseScope),
		screen:        ScreenLogin,
		layout:        LayoutWide,
		cols:          120,
		rows:          30,
		rendered:      map[string]string{},
		subjectPicked: map[string]bool{},
		toasts:        opts.Toasts,
		spring:        spring,
		help:          h,
		keys:          newKeyMaps(),
		progress:      bar,
		spin:          spin,
		markdown:      renderer,
		logger:        logger,
	}
	r.loginInputs = []textinput.Model{
		newInput("Email", false),
		newInput("Password", true),
	}
	r.registerInputs = []textinput.Model{
		newInput("Username", false),
		newInput("Email", false),
		newInput("Password", true),
		newInput("Confirm password", true),
	}
	r.setupName = newInput("Full name", false)
	r.chatInput = newInput("Ask the tutor about this lesson", false)
	r.avatarInput = newInput("https://...", false)
	r.focusForm()
	return r
}

func newInput(placeholder string, secret bool) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = "> "
	in.CharLimit = 256
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(clockTickCmd(), spinnerTickCmd(r.spin))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		r.dispatchController(func(c Controller) { c.OnResize(msg.Width, msg.Height) })
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, r.animateIfNeeded()
	case drawMsg:
		r.drawPending.Store(false)
		return r, nil
	case clockMsg:
		r.pollToasts()
		return r, tea.Batch(clockTickCmd(), r.animateIfNeeded())
	case animateMsg:
		target := r.toastTarget()
		r.toastPos, r.toastVel = r.spring.Update(r.toastPos, r.toastVel, target)
		if r.shouldAnimate(target) {
			return r, animateTickCmd()
		}
		r.toastPos = target
		r.toastVel = 0
		return r, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		return r, cmd
	case tea.PasteMsg:
		return r.handlePaste(msg)
	case tea.MouseWheelMsg:
		return r.handleMouseWheel(msg)
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	return r, nil
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			msg := "UI recovered from a rendering panic. Check logs."
			if r.statusFlash == "" {
				r.statusFlash = "Recovered UI panic"
			}
			view = tea.NewView(r.theme.Fail.Width(width).Render(trimForWidth(msg, max(1, width-1))))
		}
	}()

	if r.cols < 1 {
		r.cols = 120
	}
	if r.rows < 1 {
		r.rows = 30
	}

	v := tea.NewView(r.render())
	v.AltScreen = true
	v.MouseMode = r.currentMouseMode()
	return v
}

// render composes the current screen with its overlay and toast.
func (r *Root) render() string {
	if r.layout == LayoutTooSmall {
		return r.renderTooSmall()
	}
	base := r.renderScreen()
	if overlay := r.renderOverlay(); overlay != "" {
		base = composeOverlay(base, overlay, r.cols, r.rows)
	}
	if toast := r.renderToast(); toast != "" {
		base = r.composeToast(base, toast)
	}
	return base
}

func (r *Root) renderScreen() string {
	switch r.screen {
	case ScreenLogin:
		return r.renderLogin()
	case ScreenOTP:
		return r.renderOTP()
	case ScreenProfileSetup:
		return r.renderProfileSetup()
	case ScreenLesson:
		return r.renderLesson()
	case ScreenQuiz:
		return r.renderQuiz()
	case ScreenLeaderboard:
		return r.renderLeaderboard()
	case ScreenAchievements:
		return r.renderAchievements()
	case ScreenChat:
		return r.renderChat()
	case ScreenProfile:
		return r.renderProfile()
	default:
		return r.renderJourney()
	}
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetScreen(screen Screen) {
	r.apply(func(m *Root) {
		if m.screen != screen {
			m.statusFlash = ""
			m.helpOpen = false
			m.confirmOpen = false
			m.lessonScroll = 0
		}
		if screen != ScreenProfileSetup {
			m.setupLoaded = false
		}
		if screen == ScreenLogin || screen == ScreenChat || screen == ScreenProfile {
			m.avatarEditing = false
		}
		m.screen = screen
		m.busy = ""
		m.focusForm()
	})
}

func (r *Root) SetLogin(s LoginState) {
	r.apply(func(m *Root) {
		m.login = s
		if s.Email != "" && m.loginInputs[0].Value() == "" {
			m.loginInputs[0].SetValue(s.Email)
		}
		if s.Err != "" || s.Notice != "" {
			m.busy = ""
		}
		if s.Notice != "" {
			m.registerMode = false
			m.formFocus = 0
			m.focusForm()
		}
	})
}

func (r *Root) SetOTP(s OTPState) {
	r.apply(func(m *Root) {
		m.otp = s
		if s.Err != "" {
			m.busy = ""
		}
	})
}

func (r *Root) SetProfileSetup(s ProfileSetupState) {
	r.apply(func(m *Root) {
		m.setup = s
		if s.Err != "" {
			m.busy = ""
		}
		if m.setupLoaded {
			return
		}
		m.setupLoaded = true
		m.loadProfileDraft(s.Draft)
	})
}

func (r *Root) SetJourney(s JourneyState) {
	r.apply(func(m *Root) {
		reselect := s.SubjectIndex != m.journey.SubjectIndex ||
			len(s.Map.Nodes) != len(m.journey.Map.Nodes) ||
			m.nodeIndex >= len(s.Map.Nodes)
		m.journey = s
		if reselect {
			m.nodeIndex = 0
			if cur, ok := s.Map.Current(); ok {
				m.nodeIndex = cur.Index
			}
		}
	})
}

func (r *Root) SetLesson(s LessonState) {
	r.apply(func(m *Root) {
		if s.Body.Index != m.lesson.Body.Index || s.Level.ID != m.lesson.Level.ID {
			m.lessonScroll = 0
		}
		m.lesson = s
	})
}

func (r *Root) SetQuiz(s QuizState) {
	r.apply(func(m *Root) {
		if s.Level.ID != m.quiz.Level.ID {
			m.quizIndex = 0
		}
		m.quiz = s
		if m.quizIndex >= len(s.Sheet) {
			m.quizIndex = max(0, len(s.Sheet)-1)
		}
	})
}

func (r *Root) SetLeaderboard(s LeaderboardState) {
	r.apply(func(m *Root) { m.board = s })
}

func (r *Root) SetAchievements(s AchievementsState) {
	r.apply(func(m *Root) {
		m.achievements = s
		m.achieveOffset = min(m.achieveOffset, max(0, len(s.Items)-1))
	})
}

func (r *Root) SetChat(s ChatState) {
	r.apply(func(m *Root) { m.chat = s })
}

func (r *Root) SetProfile(s ProfileState) {
	r.apply(func(m *Root) {
		m.profile = s
		if !m.avatarEditing {
			m.avatarInput.SetValue(s.Profile.AvatarURL)
		}
	})
}

// SetBusy shows label next to a spinner in the status bar. Empty clears it.
func (r *Root) SetBusy(label string) {
	r.apply(func(m *Root) { m.busy = label })
}

func (r *Root) SetHelpOpen(open bool) {
	r.apply(func(m *Root) { m.helpOpen = open })
}

func (r *Root) SetCompleteConfirmOpen(open bool) {
	r.apply(func(m *Root) {
		m.confirmOpen = open
		m.confirmIndex = 0
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(m *Root) {
		m.statusFlash = msg
		m.busy = ""
	})
}

func (r *Root) RequestDraw() {
	r.mu.Lock()
	p := r.program
	running := r.running
	r.mu.Unlock()
	if !running || p == nil {
		return
	}
	if !r.drawPending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(16*time.Millisecond, func() {
		r.mu.Lock()
		p := r.program
		running := r.running
		r.mu.Unlock()
		if !running || p == nil {
			r.drawPending.Store(false)
			return
		}
		p.Send(drawMsg{})
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	go fn(ctrl)
}

func (r *Root) pollToasts() {
	if r.toasts == nil {
		r.activeToasts = nil
		return
	}
	r.activeToasts = r.toasts.Active()
	top := ""
	if n := len(r.activeToasts); n > 0 {
		top = r.activeToasts[n-1].ID
	}
	if top != r.toastShown {
		r.toastShown = top
		r.toastPos = 0
		r.toastVel = 0
	}
}

func (r *Root) toastTarget() float64 {
	if len(r.activeToasts) == 0 {
		return 0
	}
	return 1
}

func (r *Root) animateIfNeeded() tea.Cmd {
	if r.shouldAnimate(r.toastTarget()) {
		return animateTickCmd()
	}
	return nil
}

func (r *Root) shouldAnimate(target float64) bool {
	if r.motionLevel == "off" {
		r.toastPos = target
		return false
	}
	return abs(r.toastPos-target) > 0.001 || abs(r.toastVel) > 0.001
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func (r *Root) currentMouseMode() tea.MouseMode {
	if r.mouseScope == "off" {
		return tea.MouseModeNone
	}
	return tea.MouseModeCellMotion
}

func (r *Root) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	mouse := msg.Mouse()
	r.recordInputEvent(fmt.Sprintf("mouse_wheel:%d,%d button:%v", mouse.X, mouse.Y, mouse.Button))
	if r.mouseScope == "off" || r.overlayActive() {
		return r, nil
	}
	delta := 0
	switch mouse.Button {
	case tea.MouseWheelUp:
		delta = -1
	case tea.MouseWheelDown:
		delta = 1
	}
	if delta == 0 {
		return r, nil
	}
	switch r.screen {
	case ScreenJourney:
		r.moveNode(delta)
	case ScreenLesson:
		r.lessonScroll = max(0, r.lessonScroll+delta)
	case ScreenAchievements:
		r.achieveOffset = clamp(r.achieveOffset+delta, 0, max(0, len(r.achievements.Items)-1))
	}
	return r, nil
}

func (r *Root) handlePaste(msg tea.PasteMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("paste:%d", len(msg.Content)))
	if msg.Content == "" || r.overlayActive() {
		return r, nil
	}
	if in := r.focusedInput(); in != nil {
		in.SetValue(in.Value() + strings.TrimRight(msg.Content, "\r\n"))
	}
	return r, nil
}

func normalizeStyleVariant(v string) string {
	switch strings.TrimSpace(v) {
	case "cozy_clean", "retro_terminal", "modern_arcade":
		return strings.TrimSpace(v)
	default:
		return "modern_arcade"
	}
}

func normalizeMotionLevel(v string) string {
	switch strings.TrimSpace(v) {
	case "off", "reduced", "full":
		return strings.TrimSpace(v)
	default:
		return "full"
	}
}

func normalizeMouseScope(v string) string {
	switch strings.TrimSpace(v) {
	case "off", "scoped", "full":
		return strings.TrimSpace(v)
	default:
		return "scoped"
	}
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(strings.TrimSpace(event), 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	if r.statusFlash == "" {
		r.statusFlash = "Recovered UI panic"
	}
	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered",
		"where", where,
		"panic", fmt.Sprintf("%v", recovered),
		"message_type", msgType,
		"screen", r.screen.String(),
		"cols", r.cols,
		"rows", r.rows,
		"last_input", r.lastInputEvent,
		"stack", string(debug.Stack()),
	)
}

// Screen reports the active screen.
func (r *Root) Screen() Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.screen
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
var _ help.KeyMap = screenKeys{}
