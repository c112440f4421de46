package devtools

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/journey"

	"github.com/gin-gonic/gin"
)

type chatSession struct {
	ID        string
	UserID    int
	SubjectID journey.ID
	LevelID   journey.ID
	Title     string
	CreatedAt time.Time
	Messages  []api.ChatMessage
}

type boardRow struct {
	userID    int
	username  string
	fullName  string
	avatarURL string
	points    int
}

// boardLocked merges the fixture players with every learner account,
// highest points first.
func (s *Server) boardLocked(kind string) []boardRow {
	rows := make([]boardRow, 0, len(s.pack.Leaderboard)+len(s.accounts))
	for _, p := range s.pack.Leaderboard {
		rows = append(rows, boardRow{username: p.Username, fullName: p.FullName, avatarURL: p.AvatarURL, points: p.Points})
	}
	for _, a := range s.accounts {
		if !a.Verified {
			continue
		}
		r := boardRow{userID: a.ID, username: a.Username, points: a.Points}
		if kind == api.LeaderboardWeekly {
			r.points = a.Weekly
		}
		if a.Profile != nil {
			r.fullName = a.Profile.FullName
			r.avatarURL = a.Profile.AvatarURL
		}
		rows = append(rows, r)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].points != rows[j].points {
			return rows[i].points > rows[j].points
		}
		return rows[i].username < rows[j].username
	})
	return rows
}

func (s *Server) leaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	rows := s.boardLocked(c.DefaultQuery("type", api.LeaderboardTotal))
	s.mu.Unlock()

	out := make([]gin.H, 0, min(limit, len(rows)))
	for i, r := range rows {
		if i >= limit {
			break
		}
		item := gin.H{"rank": i + 1, "username": r.username, "total_points": r.points}
		if r.fullName != "" || r.avatarURL != "" {
			item["profile"] = gin.H{"full_name": r.fullName, "avatar_url": r.avatarURL}
		}
		out = append(out, item)
	}
	success(c, gin.H{"leaderboard": out})
}

func (s *Server) myRank(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	for i, r := range s.boardLocked(c.DefaultQuery("type", api.LeaderboardTotal)) {
		if r.userID == a.ID {
			success(c, gin.H{"rank": i + 1, "points": r.points})
			return
		}
	}
	success(c, gin.H{"rank": nil, "points": 0})
}

func (s *Server) listAchievements(c *gin.Context) {
	out := make([]gin.H, 0, len(s.pack.Achievements))
	for _, ach := range s.pack.Achievements {
		out = append(out, achievementJSON(ach))
	}
	success(c, out)
}

func (s *Server) myAchievements(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	out := make([]gin.H, 0, len(a.Awarded))
	for _, ach := range s.pack.Achievements {
		at, has := a.Awarded[ach.ID]
		if !has {
			continue
		}
		out = append(out, gin.H{
			"id":           ach.ID + "-" + strconv.Itoa(a.ID),
			"awarded_at":   stamp(at),
			"achievements": achievementJSON(ach),
		})
	}
	success(c, out)
}

func achievementJSON(ach FixtureAchieve) gin.H {
	return gin.H{
		"id":            journey.ID(ach.ID),
		"title":         ach.Title,
		"description":   ach.Description,
		"icon_url":      ach.IconURL,
		"points_reward": ach.PointsReward,
	}
}

func (s *Server) notifications(c *gin.Context) {
	unreadOnly := c.Query("unread_only") == "true"
	limit, _ := strconv.Atoi(c.Query("limit"))
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	out := make([]api.Notification, 0, len(s.pack.Notifications))
	for _, n := range s.pack.Notifications {
		read := a.Read[n.ID]
		if unreadOnly && read {
			continue
		}
		out = append(out, api.Notification{ID: journey.ID(n.ID), Title: n.Title, Message: n.Message, Type: n.Type, IsRead: read})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	success(c, out)
}

func (s *Server) unreadCount(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	n := 0
	for _, notice := range s.pack.Notifications {
		if !a.Read[notice.ID] {
			n++
		}
	}
	success(c, gin.H{"unread_count": n})
}

func (s *Server) markRead(c *gin.Context) {
	id := c.Param("id")
	known := false
	for _, n := range s.pack.Notifications {
		known = known || n.ID == id
	}
	if !known {
		notFound(c, "Notification")
		return
	}
	s.mu.Lock()
	s.caller(c).Read[id] = true
	s.mu.Unlock()
	successMessage(c, http.StatusOK, "Notification marked as read", nil)
}

func (s *Server) markAllRead(c *gin.Context) {
	s.mu.Lock()
	a := s.caller(c)
	for _, n := range s.pack.Notifications {
		a.Read[n.ID] = true
	}
	s.mu.Unlock()
	successMessage(c, http.StatusOK, "All notifications marked as read", nil)
}

func (s *Server) createChatSession(c *gin.Context) {
	var in struct {
		SubjectID journey.ID `json:"subject_id"`
		LevelID   journey.ID `json:"level_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	title := "New chat"
	if l, found := s.pack.Level(in.LevelID.String()); found {
		title = l.Title
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := &chatSession{
		ID:        strconv.Itoa(len(s.chats) + 1),
		UserID:    s.caller(c).ID,
		SubjectID: in.SubjectID,
		LevelID:   in.LevelID,
		Title:     title,
		CreatedAt: s.now(),
	}
	s.chats[cs.ID] = cs
	successMessage(c, http.StatusCreated, "Chat session created", chatSessionJSON(cs))
}

func (s *Server) chatSessions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := s.caller(c).ID
	out := make([]api.ChatSession, 0)
	for _, cs := range s.chats {
		if cs.UserID == userID {
			out = append(out, chatSessionJSON(cs))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt || (out[i].CreatedAt == out[j].CreatedAt && out[i].ID > out[j].ID)
	})
	success(c, out)
}

// ownedSessionLocked looks up a chat session belonging to the caller.
func (s *Server) ownedSessionLocked(c *gin.Context) (*chatSession, bool) {
	cs, found := s.chats[c.Param("id")]
	if !found || cs.UserID != s.caller(c).ID {
		return nil, false
	}
	return cs, true
}

func (s *Server) chatMessages(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, found := s.ownedSessionLocked(c)
	if !found {
		notFound(c, "Chat session")
		return
	}
	success(c, append([]api.ChatMessage{}, cs.Messages...))
}

// sendChatMessage stores the user message and answers with the next canned
// reply. A message of only "?" gets an empty reply so clients exercise
// their fallback text.
func (s *Server) sendChatMessage(c *gin.Context) {
	var in struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Message) == "" {
		fail(c, http.StatusBadRequest, "message is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, found := s.ownedSessionLocked(c)
	if !found {
		notFound(c, "Chat session")
		return
	}
	now := stamp(s.now())
	user := api.ChatMessage{
		ID:        journey.ID(strconv.Itoa(len(cs.Messages) + 1)),
		SessionID: journey.ID(cs.ID),
		Sender:    "user",
		Message:   strings.TrimSpace(in.Message),
		CreatedAt: now,
	}
	cs.Messages = append(cs.Messages, user)
	reply := gin.H{"user_message": user}
	if strings.TrimSpace(in.Message) != "?" {
		bot := api.ChatMessage{
			ID:        journey.ID(strconv.Itoa(len(cs.Messages) + 1)),
			SessionID: journey.ID(cs.ID),
			Sender:    "bot",
			Message:   s.pack.ChatReplies[s.replyIndex%len(s.pack.ChatReplies)],
			CreatedAt: now,
		}
		s.replyIndex++
		cs.Messages = append(cs.Messages, bot)
		reply["ai_message"] = bot
	}
	success(c, reply)
}

func chatSessionJSON(cs *chatSession) api.ChatSession {
	return api.ChatSession{
		ID:        journey.ID(cs.ID),
		SubjectID: cs.SubjectID,
		LevelID:   cs.LevelID,
		Title:     cs.Title,
		CreatedAt: stamp(cs.CreatedAt),
	}
}
