package ui

import (
	"time"

	"edujourney/internal/api"
	"edujourney/internal/chat"
	"edujourney/internal/journey"
	"edujourney/internal/lesson"
	"edujourney/internal/pacing"
	"edujourney/internal/quiz"
	"edujourney/internal/rewards"
)

type Controller interface {
	OnLogin(email, password string)
	OnRegister(form RegisterForm)
	OnOTPInput(r rune)
	OnOTPBackspace()
	OnResendOTP()
	OnSubmitProfile(form ProfileForm)
	OnSelectSubject(index int)
	OnRefresh()
	OnOpenLevel(levelID string)
	OnNextBody()
	OnCompleteLevel()
	OnOpenQuiz()
	OnChooseAnswer(question, choice int)
	OnSubmitQuiz()
	OnBackToJourney()
	OnOpenLeaderboard(kind string)
	OnOpenAchievements()
	OnOpenChat()
	OnNewChat()
	OnSelectChatSession(index int)
	OnSendChat(text string)
	OnOpenProfile()
	OnUpdateAvatar(url string)
	OnMarkAllRead()
	OnLogout()
	OnQuit()
	OnResize(cols, rows int)
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetScreen(screen Screen)
	SetLogin(LoginState)
	SetOTP(OTPState)
	SetProfileSetup(ProfileSetupState)
	SetJourney(JourneyState)
	SetLesson(LessonState)
	SetQuiz(QuizState)
	SetLeaderboard(LeaderboardState)
	SetAchievements(AchievementsState)
	SetChat(ChatState)
	SetProfile(ProfileState)
	SetBusy(label string)
	SetHelpOpen(open bool)
	SetCompleteConfirmOpen(open bool)
	FlashStatus(msg string)
	RequestDraw()
}

type Screen int

const (
	ScreenLogin Screen = iota
	ScreenOTP
	ScreenProfileSetup
	ScreenJourney
	ScreenLesson
	ScreenQuiz
	ScreenLeaderboard
	ScreenAchievements
	ScreenChat
	ScreenProfile
)

func (s Screen) String() string {
	switch s {
	case ScreenLogin:
		return "login"
	case ScreenOTP:
		return "otp"
	case ScreenProfileSetup:
		return "profile_setup"
	case ScreenJourney:
		return "journey"
	case ScreenLesson:
		return "lesson"
	case ScreenQuiz:
		return "quiz"
	case ScreenLeaderboard:
		return "leaderboard"
	case ScreenAchievements:
		return "achievements"
	case ScreenChat:
		return "chat"
	case ScreenProfile:
		return "profile"
	default:
		return "unknown"
	}
}

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutMedium
	LayoutTooSmall
)

type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

type ProfileForm struct {
	FullName     string
	Gender       string
	ClassID      int
	GradeLevelID int
	SubjectIDs   []string
}

type LoginState struct {
	Email string
	// Notice is shown in the accent color, for example after registering.
	Notice string
	Err    string
}

type OTPState struct {
	Email    string
	Boxes    []string
	Cursor   int
	ResendIn int
	Err      string
}

type ProfileSetupState struct {
	Subjects []api.Subject
	Draft    ProfileForm
	Err      string
}

type JourneyState struct {
	Username      string
	Subjects      []string
	SubjectIndex  int
	Map           journey.Map
	Points        int
	Streak        int
	Rank          string
	Unread        int
	Err           string
	FirstToday    bool
	StreakStarted bool
}

type LessonState struct {
	Level    journey.Level
	Body     lesson.Body
	Count    int
	Pacing   pacing.State
	IsLast   bool
	Complete bool
}

type QuizState struct {
	Level   journey.Level
	Sheet   []api.Question
	Choices []int
	Result  *quiz.Result
	Err     string
}

type LeaderboardState struct {
	Kind  string
	Board rewards.Board
	Rank  rewards.Rank
	Err   string
}

type AchievementsState struct {
	Items []rewards.Achievement
	Now   time.Time
	Err   string
}

type ChatState struct {
	Snapshot chat.Snapshot
	Context  string
}

type ProfileState struct {
	Profile       api.Profile
	User          api.User
	Stats         api.Stats
	Notifications []api.Notification
	Visits        int
	Completed     int
	Err           string
}
