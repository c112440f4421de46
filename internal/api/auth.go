package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const PurposeEmailVerification = "email_verification"

func (c *Client) Register(ctx context.Context, in RegisterInput) (User, error) {
	var out User
	_, err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out)
	return out, err
}

// RequestOTP asks the backend to email a one-time code. An empty purpose
// means email verification.
func (c *Client) RequestOTP(ctx context.Context, email, purpose string) error {
	if purpose == "" {
		purpose = PurposeEmailVerification
	}
	_, err := c.do(ctx, http.MethodPost, "/api/auth/request-otp", map[string]string{
		"email":   email,
		"purpose": purpose,
	}, nil)
	return err
}

// VerifyEmail exchanges an OTP for a session. The returned token is also
// installed on the client.
func (c *Client) VerifyEmail(ctx context.Context, email, code string) (AuthResult, error) {
	var out AuthResult
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/verify-email", map[string]string{
		"email":    email,
		"otp_code": code,
	}, &out); err != nil {
		return AuthResult{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return AuthResult{}, ErrMissingCredentials
	}
	var out AuthResult
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out); err != nil {
		return AuthResult{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	_, err := c.get(ctx, "/api/auth/me", &out)
	return out, err
}

// Profile loads the caller's profile. The backend wraps it under "profile"
// in newer versions.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	env, err := c.get(ctx, "/api/profile", nil)
	if err != nil {
		return Profile{}, err
	}
	return decodeProfile(env.Data)
}

func (c *Client) CompleteProfile(ctx context.Context, in ProfileInput) (Profile, error) {
	env, err := c.do(ctx, http.MethodPut, "/api/profile/complete", in, nil)
	if err != nil {
		return Profile{}, err
	}
	return decodeProfile(env.Data)
}

func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (Profile, error) {
	env, err := c.do(ctx, http.MethodPut, "/api/profile", in, nil)
	if err != nil {
		return Profile{}, err
	}
	return decodeProfile(env.Data)
}

func (c *Client) UpdateAvatar(ctx context.Context, avatarURL string) (Profile, error) {
	env, err := c.do(ctx, http.MethodPut, "/api/profile/avatar", map[string]string{"avatar_url": avatarURL}, nil)
	if err != nil {
		return Profile{}, err
	}
	return decodeProfile(env.Data)
}

func decodeProfile(data json.RawMessage) (Profile, error) {
	if len(data) == 0 || string(data) == "null" {
		return Profile{}, nil
	}
	var wrapped struct {
		Profile *Profile `json:"profile"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Profile != nil {
		return *wrapped.Profile, nil
	}
	var out Profile
	if err := json.Unmarshal(data, &out); err != nil {
		return Profile{}, err
	}
	return out, nil
}
