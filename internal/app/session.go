package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"edujourney/internal/api"
	"edujourney/internal/journey"
	"edujourney/internal/onboarding"
	"edujourney/internal/state"
	"edujourney/internal/ui"
)

// restoreSessionLocked resumes the saved login, or shows the login screen
// when there is none or the token was rejected.
func (a *App) restoreSessionLocked() {
	ctx, cancel := a.opCtx()
	defer cancel()

	sess, err := a.store.LoadSession(ctx)
	if err != nil {
		a.logger.Error("session.load_failed", map[string]any{"error": err.Error()})
	}
	if sess == nil || sess.Token == "" {
		a.showLoginLocked("")
		return
	}
	a.client.SetToken(sess.Token)
	user, err := a.client.Me(ctx)
	if err != nil {
		a.logger.Warn("session.resume_failed", map[string]any{"error": err.Error()})
		if api.IsUnauthorized(err) {
			_ = a.store.ClearSession(ctx)
		}
		a.client.SetToken("")
		a.view.SetLogin(ui.LoginState{Email: sess.Email, Err: "Your session expired. Please sign in again."})
		a.showLocked(ui.ScreenLogin)
		return
	}
	a.logger.Info("session.resumed", map[string]any{"user": user.ID.String()})
	a.afterAuthLocked(ctx, sess.Token, user)
}

func (a *App) showLoginLocked(email string) {
	a.view.SetLogin(ui.LoginState{Email: email, Notice: a.loginNotice})
	a.loginNotice = ""
	a.showLocked(ui.ScreenLogin)
}

// afterAuthLocked persists the session and routes the user to profile setup
// or their journey.
func (a *App) afterAuthLocked(ctx context.Context, token string, user api.User) {
	a.user = user
	a.stopOTPTimerLocked()
	a.otp = nil
	if err := a.store.SaveSession(ctx, state.Session{
		Token:           token,
		UserID:          user.ID.String(),
		Email:           user.Email,
		Username:        user.Username,
		ProfileComplete: user.ProfileComplete,
		SavedTS:         a.now(),
	}); err != nil {
		a.logger.Error("session.save_failed", map[string]any{"error": err.Error()})
	}

	if onboarding.NextStep(user) == onboarding.StepProfileSetup {
		a.showProfileSetupLocked(ctx, "")
		return
	}
	profile, err := a.client.Profile(ctx)
	switch {
	case err == nil:
		a.profile = profile
	case user.Profile != nil:
		a.profile = *user.Profile
	default:
		a.logger.Warn("profile.load_failed", map[string]any{"error": err.Error()})
	}
	if a.profile.ClassID == 0 {
		a.showProfileSetupLocked(ctx, "")
		return
	}
	a.subjectIndex = savedSubject(ctx, a.store, a.logger)
	a.loadJourneyLocked(ctx)
	a.showLocked(ui.ScreenJourney)
}

func (a *App) OnLogin(email, password string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		a.view.SetLogin(ui.LoginState{Email: email, Err: api.ErrMissingCredentials.Error()})
		return
	}
	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		if needsVerification(err) {
			a.logger.Info("auth.unverified", map[string]any{"email": email})
			if rerr := a.client.RequestOTP(ctx, email, ""); rerr != nil {
				a.logger.Warn("auth.request_otp_failed", map[string]any{"error": rerr.Error()})
			}
			a.startOTPLocked(email, true)
			return
		}
		a.logger.Warn("auth.login_failed", map[string]any{"email": email, "error": err.Error()})
		a.view.SetLogin(ui.LoginState{Email: email, Err: api.ErrorMessage(err, "Login failed")})
		return
	}
	a.logger.Info("auth.login", map[string]any{"user": res.User.ID.String()})
	a.afterAuthLocked(ctx, res.Token, res.User)
}

// needsVerification spots the backend's "verify your email first" refusal.
func needsVerification(err error) bool {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "verif")
}

func (a *App) OnRegister(form ui.RegisterForm) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	in := api.RegisterInput(form)
	if msg := onboarding.ValidateRegister(in); msg != "" {
		a.view.SetLogin(ui.LoginState{Email: form.Email, Err: msg})
		return
	}
	user, err := a.client.Register(ctx, in)
	if err != nil {
		a.logger.Warn("auth.register_failed", map[string]any{"email": form.Email, "error": err.Error()})
		a.view.SetLogin(ui.LoginState{Email: form.Email, Err: onboarding.FormatAPIError(err)})
		return
	}
	a.logger.Info("auth.register", map[string]any{"user": user.ID.String()})
	a.startOTPLocked(firstNonEmpty(user.Email, form.Email), false)
}

// startOTPLocked opens the code screen. withCooldown arms the resend
// cooldown because a code was just requested.
func (a *App) startOTPLocked(email string, withCooldown bool) {
	a.stopOTPTimerLocked()
	a.otp = onboarding.NewOTP(email)
	if withCooldown {
		a.otp.StartResend(a.now())
		a.startOTPTimerLocked()
	}
	a.pushOTPLocked("")
	a.showLocked(ui.ScreenOTP)
}

func (a *App) pushOTPLocked(errText string) {
	if a.otp == nil {
		return
	}
	a.view.SetOTP(ui.OTPState{
		Email:    a.otp.Email,
		Boxes:    a.otp.Boxes("_"),
		Cursor:   a.otp.Cursor(),
		ResendIn: a.otp.ResendRemaining(a.now()),
		Err:      errText,
	})
}

func (a *App) OnOTPInput(r rune) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.otp == nil {
		return
	}
	code, complete := a.otp.Type(r)
	a.pushOTPLocked("")
	if !complete {
		return
	}
	a.verifyLocked(code)
}

func (a *App) verifyLocked(code string) {
	if msg := onboarding.ValidateCode(code); msg != "" {
		a.pushOTPLocked(msg)
		return
	}
	ctx, cancel := a.opCtx()
	defer cancel()
	a.view.SetBusy("Verifying")
	res, err := a.client.VerifyEmail(ctx, a.otp.Email, code)
	a.view.SetBusy("")
	if err != nil {
		a.logger.Warn("auth.verify_failed", map[string]any{"email": a.otp.Email, "error": err.Error()})
		a.pushOTPLocked(api.ErrorMessage(err, "Invalid OTP code"))
		return
	}
	a.logger.Info("auth.verified", map[string]any{"user": res.User.ID.String()})
	a.afterAuthLocked(ctx, res.Token, res.User)
}

func (a *App) OnOTPBackspace() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.otp == nil {
		return
	}
	a.otp.Backspace()
	a.pushOTPLocked("")
}

func (a *App) OnResendOTP() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.otp == nil {
		return
	}
	if !a.otp.StartResend(a.now()) {
		a.pushOTPLocked("")
		return
	}
	a.otp.Reset()
	a.startOTPTimerLocked()
	ctx, cancel := a.opCtx()
	defer cancel()
	if err := a.client.RequestOTP(ctx, a.otp.Email, ""); err != nil {
		a.logger.Warn("auth.resend_failed", map[string]any{"error": err.Error()})
		a.pushOTPLocked(api.ErrorMessage(err, "Failed to resend OTP"))
		return
	}
	a.pushOTPLocked("")
	a.view.FlashStatus("A new code is on its way")
}

// startOTPTimerLocked refreshes the resend countdown once a second until
// it reaches zero or the OTP screen is left.
func (a *App) startOTPTimerLocked() {
	a.stopOTPTimerLocked()
	ctx, cancel := context.WithCancel(a.ctx)
	a.otpStop = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			a.mu.Lock()
			if ctx.Err() != nil || a.otp == nil {
				a.mu.Unlock()
				return
			}
			a.pushOTPLocked("")
			left := a.otp.ResendRemaining(a.now())
			a.mu.Unlock()
			if left == 0 {
				return
			}
		}
	}()
}

func (a *App) stopOTPTimerLocked() {
	if a.otpStop != nil {
		a.otpStop()
		a.otpStop = nil
	}
}

func (a *App) showProfileSetupLocked(ctx context.Context, errText string) {
	subjects, err := a.client.Subjects(ctx)
	if err != nil {
		a.logger.Warn("profile.subjects_failed", map[string]any{"error": err.Error()})
		if errText == "" {
			errText = api.ErrorMessage(err, "Could not load subjects")
		}
	}
	draft := ui.ProfileForm{ClassID: onboarding.ClassSMP}
	if d, derr := a.store.LoadProfileDraft(ctx); derr == nil && d != nil {
		draft = ui.ProfileForm{
			FullName:     d.FullName,
			Gender:       d.Gender,
			ClassID:      d.ClassID,
			GradeLevelID: d.GradeLevelID,
			SubjectIDs:   d.SubjectIDs,
		}
	}
	a.view.SetProfileSetup(ui.ProfileSetupState{Subjects: subjects, Draft: draft, Err: errText})
	a.showLocked(ui.ScreenProfileSetup)
}

func (a *App) OnSubmitProfile(form ui.ProfileForm) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	if err := a.store.SaveProfileDraft(ctx, state.ProfileDraft{
		FullName:     form.FullName,
		Gender:       form.Gender,
		GradeLevelID: form.GradeLevelID,
		ClassID:      form.ClassID,
		SubjectIDs:   form.SubjectIDs,
		UpdatedTS:    a.now(),
	}); err != nil {
		a.logger.Warn("profile.draft_save_failed", map[string]any{"error": err.Error()})
	}

	in := api.ProfileInput{
		FullName:     strings.TrimSpace(form.FullName),
		Gender:       form.Gender,
		GradeLevelID: form.GradeLevelID,
		ClassID:      form.ClassID,
	}
	for _, id := range form.SubjectIDs {
		in.SubjectIDs = append(in.SubjectIDs, journey.ID(id))
	}
	if msg := onboarding.ValidateProfile(in); msg != "" {
		a.showProfileSetupLocked(ctx, msg)
		return
	}
	profile, err := a.client.CompleteProfile(ctx, in)
	if err != nil {
		a.logger.Warn("profile.complete_failed", map[string]any{"error": err.Error()})
		a.showProfileSetupLocked(ctx, onboarding.FormatAPIError(err))
		return
	}
	_ = a.store.ClearProfileDraft(ctx)
	a.profile = profile
	a.user.ProfileComplete = true
	if sess, err := a.store.LoadSession(ctx); err == nil && sess != nil {
		sess.ProfileComplete = true
		_ = a.store.SaveSession(ctx, *sess)
	}
	a.logger.Info("profile.completed", map[string]any{"class": profile.ClassID, "grade": profile.GradeLevelID})
	a.subjectIndex = 0
	a.loadJourneyLocked(ctx)
	a.showLocked(ui.ScreenJourney)
}

func (a *App) OnLogout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	ctx, cancel := a.opCtx()
	defer cancel()

	a.stopOTPTimerLocked()
	a.closeLessonLocked(false)
	if err := a.store.ClearSession(ctx); err != nil {
		a.logger.Error("session.clear_failed", map[string]any{"error": err.Error()})
	}
	a.client.SetToken("")
	email := a.user.Email
	if a.otp != nil {
		email = a.otp.Email
	}
	a.user = api.User{}
	a.profile = api.Profile{}
	a.journey = Journey{}
	a.otp = nil
	a.sheet = nil
	a.quizResult = nil
	a.logger.Info("auth.logout", nil)
	a.showLoginLocked(email)
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
