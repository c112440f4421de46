package devtools

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"edujourney/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ServerOptions tunes the fixture backend.
type ServerOptions struct {
	Now    func() time.Time
	Logger *telemetry.Logger
	// Latency is added to every request so loading states are visible.
	Latency time.Duration
}

// Server is an in-memory backend serving a fixture pack over the same
// routes and envelope the real API uses. State changes made by clients
// (progress, points, chat) live until the server is dropped.
type Server struct {
	pack    Pack
	now     func() time.Time
	logger  *telemetry.Logger
	latency time.Duration
	engine  *gin.Engine

	mu         sync.Mutex
	accounts   map[int]*account
	byEmail    map[string]int
	tokens     map[string]int
	chats      map[string]*chatSession
	nextUserID int
	nextRowID  int
	replyIndex int
}

type account struct {
	ID       int
	Email    string
	Username string
	Password string
	Verified bool
	Points   int
	Weekly   int
	Streak   int
	Longest  int
	LastDay  string
	Profile  *FixtureProfile
	Progress map[string]*progressRow
	Awarded  map[string]time.Time
	Read     map[string]bool
}

func (a *account) profileComplete() bool {
	return a.Profile != nil && strings.TrimSpace(a.Profile.FullName) != "" && a.Profile.ClassID != 0
}

func (a *account) completedCount() int {
	n := 0
	for _, row := range a.Progress {
		if row.Status == "completed" {
			n++
		}
	}
	return n
}

type progressRow struct {
	ID          int
	LevelID     string
	Status      string
	Score       int
	StartedAt   time.Time
	CompletedAt time.Time
}

func NewServer(pack Pack, opts ServerOptions) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		pack:       pack,
		now:        opts.Now,
		logger:     opts.Logger,
		latency:    opts.Latency,
		accounts:   map[int]*account{},
		byEmail:    map[string]int{},
		tokens:     map[string]int{},
		chats:      map[string]*chatSession{},
		nextUserID: 1,
		nextRowID:  1,
	}
	s.seed()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLog())
	s.registerRoutes(engine)
	s.engine = engine
	return s
}

func (s *Server) seed() {
	start := s.now()
	for _, u := range s.pack.Users {
		a := &account{
			ID:       u.ID,
			Email:    u.Email,
			Username: u.Username,
			Password: u.Password,
			Verified: u.Verified,
			Points:   u.Points,
			Weekly:   u.Points,
			Streak:   u.Streak,
			Longest:  u.Streak,
			Progress: map[string]*progressRow{},
			Awarded:  map[string]time.Time{},
			Read:     map[string]bool{},
		}
		if u.Streak > 0 {
			a.LastDay = dayKey(start.AddDate(0, 0, -1))
		}
		if u.Profile != nil {
			p := *u.Profile
			a.Profile = &p
		}
		s.accounts[a.ID] = a
		s.byEmail[strings.ToLower(a.Email)] = a.ID
		if a.ID >= s.nextUserID {
			s.nextUserID = a.ID + 1
		}
	}
	for _, pr := range s.pack.Progress {
		a, ok := s.accounts[pr.UserID]
		if !ok {
			continue
		}
		row := &progressRow{ID: s.nextRowID, LevelID: pr.LevelID, Status: pr.Status, Score: pr.Score, StartedAt: start}
		if pr.Status == "completed" {
			row.CompletedAt = start
		}
		s.nextRowID++
		a.Progress[pr.LevelID] = row
	}
	for _, a := range s.accounts {
		s.awardAchievements(a, start)
	}
}

// Handler exposes the gin engine, for httptest servers.
func (s *Server) Handler() http.Handler { return s.engine }

// Pack returns the fixture the server was built from.
func (s *Server) Pack() Pack { return s.pack }

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on an existing listener until ctx is cancelled. The
// app uses it with an ephemeral port in mock mode.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("mock.listen", map[string]any{"addr": ln.Addr().String(), "fixture": s.pack.Name})
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// IssueToken signs in a fixture user without the OTP round trip.
func (s *Server) IssueToken(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return "", false
	}
	return s.issueTokenLocked(id), true
}

func (s *Server) issueTokenLocked(userID int) string {
	token := "mock-" + uuid.NewString()
	s.tokens[token] = userID
	return token
}

func (s *Server) registerRoutes(r *gin.Engine) {
	public := r.Group("/api")
	{
		public.POST("/auth/register", s.register)
		public.POST("/auth/request-otp", s.requestOTP)
		public.POST("/auth/verify-email", s.verifyEmail)
		public.POST("/auth/login", s.login)
		public.GET("/subjects", s.listSubjects)
		public.GET("/subjects/class/:classId", s.subjectLevelsByClass)
		public.GET("/learning/subjects/:id", s.getSubject)
		public.GET("/learning/subjects/:id/subject-levels", s.subjectLevelsBySubject)
		public.GET("/learning/subjects/:id/levels", s.levelsBySubject)
		public.GET("/levels/subject-level/:id", s.levelsBySubjectLevel)
		public.GET("/learning/levels/:id", s.getLevel)
		public.GET("/learning/levels/:id/materials", s.getMaterials)
	}

	authed := r.Group("/api")
	authed.Use(s.requireAuth())
	{
		authed.GET("/auth/me", s.me)
		authed.GET("/profile", s.getProfile)
		authed.PUT("/profile", s.updateProfile)
		authed.PUT("/profile/complete", s.completeProfile)
		authed.PUT("/profile/avatar", s.updateAvatar)
		authed.POST("/profile/avatar/upload", s.uploadAvatar)

		authed.POST("/progress/levels/:id/start", s.startLevel)
		authed.GET("/progress/levels/:id", s.getLevelProgress)
		authed.PUT("/progress/levels/:id", s.updateLevelProgress)
		authed.POST("/progress/levels/:id/complete", s.completeLevel)
		authed.GET("/progress/my-progress", s.myProgress)
		authed.GET("/progress/journey-map/:id", s.journeyMap)
		authed.GET("/progress/stats", s.stats)

		authed.GET("/quiz/levels/:id/questions", s.questions)
		authed.POST("/quiz/levels/:id/submit", s.submitAnswers)

		authed.GET("/leaderboard", s.leaderboard)
		authed.GET("/leaderboard/my-rank", s.myRank)
		authed.GET("/achievements", s.listAchievements)
		authed.GET("/achievements/my-achievements", s.myAchievements)

		authed.GET("/notifications", s.notifications)
		authed.GET("/notifications/unread-count", s.unreadCount)
		authed.PUT("/notifications/read-all", s.markAllRead)
		authed.PUT("/notifications/:id/read", s.markRead)

		authed.POST("/ai-chat/sessions", s.createChatSession)
		authed.GET("/ai-chat/sessions", s.chatSessions)
		authed.GET("/ai-chat/sessions/:id/messages", s.chatMessages)
		authed.POST("/ai-chat/sessions/:id/messages", s.sendChatMessage)
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		start := time.Now()
		c.Next()
		s.logger.Debug("mock.request", map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
	}
}

const accountKey = "account"

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		s.mu.Lock()
		id, ok := s.tokens[token]
		s.mu.Unlock()
		if token == "" || !ok {
			fail(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Set(accountKey, id)
		c.Next()
	}
}

// caller returns the signed-in account. Callers must hold s.mu.
func (s *Server) caller(c *gin.Context) *account {
	return s.accounts[c.GetInt(accountKey)]
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func successMessage(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{"success": true, "message": message, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func notFound(c *gin.Context, what string) {
	fail(c, http.StatusNotFound, what+" not found")
}

func dayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
