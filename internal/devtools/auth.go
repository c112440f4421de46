package devtools

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/journey"
	"edujourney/internal/onboarding"

	"github.com/gin-gonic/gin"
)

func (s *Server) register(c *gin.Context) {
	var in api.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := onboarding.ValidateRegister(in); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Validation failed", "errors": []string{msg}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, taken := s.byEmail[email]; taken {
		fail(c, http.StatusConflict, "Email already registered")
		return
	}
	for _, a := range s.accounts {
		if strings.EqualFold(a.Username, in.Username) {
			fail(c, http.StatusConflict, "Username already exists")
			return
		}
	}
	a := &account{
		ID:       s.nextUserID,
		Email:    in.Email,
		Username: in.Username,
		Password: in.Password,
		Progress: map[string]*progressRow{},
		Awarded:  map[string]time.Time{},
		Read:     map[string]bool{},
	}
	s.nextUserID++
	s.accounts[a.ID] = a
	s.byEmail[email] = a.ID
	successMessage(c, http.StatusCreated, "Registration successful. Please verify your email.", userJSON(a))
}

func (s *Server) requestOTP(c *gin.Context) {
	var in struct {
		Email   string `json:"email"`
		Purpose string `json:"purpose"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Email) == "" {
		fail(c, http.StatusBadRequest, "email is required")
		return
	}
	s.mu.Lock()
	_, known := s.byEmail[strings.ToLower(strings.TrimSpace(in.Email))]
	s.mu.Unlock()
	if !known {
		notFound(c, "User")
		return
	}
	successMessage(c, http.StatusOK, "OTP sent to "+in.Email, nil)
}

func (s *Server) verifyEmail(c *gin.Context) {
	var in struct {
		Email   string `json:"email"`
		OTPCode string `json:"otp_code"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, known := s.byEmail[strings.ToLower(strings.TrimSpace(in.Email))]
	if !known {
		notFound(c, "User")
		return
	}
	if in.OTPCode != s.pack.OTPCode {
		fail(c, http.StatusBadRequest, "Invalid or expired OTP code")
		return
	}
	a := s.accounts[id]
	a.Verified = true
	success(c, gin.H{"token": s.issueTokenLocked(a.ID), "user": userJSON(a)})
}

func (s *Server) login(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, known := s.byEmail[strings.ToLower(strings.TrimSpace(in.Email))]
	if !known || s.accounts[id].Password != in.Password {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	a := s.accounts[id]
	if !a.Verified {
		fail(c, http.StatusForbidden, "Please verify your email first")
		return
	}
	success(c, gin.H{"token": s.issueTokenLocked(a.ID), "user": userJSON(a)})
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	success(c, userJSON(s.caller(c)))
}

func (s *Server) getProfile(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	success(c, gin.H{"profile": profileJSON(s.caller(c))})
}

func (s *Server) completeProfile(c *gin.Context) {
	var in api.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := onboarding.ValidateProfile(in); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	avatar := ""
	if a.Profile != nil {
		avatar = a.Profile.AvatarURL
	}
	a.Profile = &FixtureProfile{
		FullName:     strings.TrimSpace(in.FullName),
		Gender:       in.Gender,
		GradeLevelID: in.GradeLevelID,
		ClassID:      in.ClassID,
		SubjectIDs:   idStrings(in.SubjectIDs),
		AvatarURL:    avatar,
	}
	successMessage(c, http.StatusOK, "Profile completed", gin.H{"profile": profileJSON(a)})
}

func (s *Server) updateProfile(c *gin.Context) {
	var in api.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	if a.Profile == nil {
		a.Profile = &FixtureProfile{}
	}
	if v := strings.TrimSpace(in.FullName); v != "" {
		a.Profile.FullName = v
	}
	if in.Gender != "" {
		a.Profile.Gender = in.Gender
	}
	if in.ClassID != 0 {
		a.Profile.ClassID = in.ClassID
	}
	if in.GradeLevelID != 0 {
		a.Profile.GradeLevelID = in.GradeLevelID
	}
	if len(in.SubjectIDs) > 0 {
		a.Profile.SubjectIDs = idStrings(in.SubjectIDs)
	}
	success(c, profileJSON(a))
}

func (s *Server) updateAvatar(c *gin.Context) {
	var in struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.AvatarURL) == "" {
		fail(c, http.StatusBadRequest, "avatar_url is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	if a.Profile == nil {
		a.Profile = &FixtureProfile{}
	}
	a.Profile.AvatarURL = strings.TrimSpace(in.AvatarURL)
	success(c, gin.H{"profile": profileJSON(a)})
}

func (s *Server) uploadAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		fail(c, http.StatusBadRequest, "avatar file is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.caller(c)
	if a.Profile == nil {
		a.Profile = &FixtureProfile{}
	}
	a.Profile.AvatarURL = "/uploads/avatars/" + filepath.Base(file.Filename)
	success(c, gin.H{"profile": profileJSON(a)})
}

func userJSON(a *account) gin.H {
	out := gin.H{
		"id":               a.ID,
		"email":            a.Email,
		"username":         a.Username,
		"is_verified":      a.Verified,
		"profile_complete": a.profileComplete(),
	}
	if a.Profile != nil {
		out["profile"] = profileJSON(a)
	}
	return out
}

func profileJSON(a *account) gin.H {
	p := a.Profile
	if p == nil {
		p = &FixtureProfile{}
	}
	ids := make([]journey.ID, 0, len(p.SubjectIDs))
	for _, id := range p.SubjectIDs {
		ids = append(ids, journey.ID(id))
	}
	return gin.H{
		"id":             a.ID,
		"user_id":        a.ID,
		"full_name":      p.FullName,
		"gender":         p.Gender,
		"grade_level_id": p.GradeLevelID,
		"class_id":       p.ClassID,
		"subject_ids":    ids,
		"avatar_url":     p.AvatarURL,
		"points":         gin.H{"total": a.Points, "weekly": a.Weekly, "monthly": a.Points},
		"streak":         gin.H{"current": a.Streak, "longest": a.Longest, "last_active_date": a.LastDay},
	}
}

func idStrings(ids []journey.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s := strings.TrimSpace(id.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
