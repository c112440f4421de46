package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"edujourney/internal/journey"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/"})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestBearerTokenAndEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/progress/stats", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		writeJSON(w, 200, `{"success":true,"data":{"points":{"total":120,"weekly":20},"streak":3}}`)
	})
	c.SetToken("tok-1")

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 120, stats.TotalPoints())
	require.Equal(t, 20, stats.Points.Weekly)
	require.Equal(t, 3, stats.CurrentStreak())
}

func TestStatsLegacyFieldNames(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":true,"data":{"total_points":75,"current_streak":2}}`)
	})
	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 75, stats.TotalPoints())
	require.Equal(t, 2, stats.CurrentStreak())
}

func TestErrorMessagePrecedence(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"500 error string", 500, `{"error":"db down","message":"ignored"}`, "db down"},
		{"500 error object", 500, `{"error":{"message":"nested"}}`, "nested"},
		{"500 error object without message", 500, `{"error":{"code":1}}`, "Server error (500)"},
		{"500 message", 500, `{"message":"boom"}`, "boom"},
		{"500 errors", 500, `{"errors":[{"message":"a"},"b"]}`, "a, b"},
		{"404 message", 404, `{"message":"level missing"}`, "level missing"},
		{"404 default", 404, `{}`, "Resource not found."},
		{"401 error", 401, `{"error":"token expired"}`, "token expired"},
		{"403 default", 403, `{}`, "Forbidden. You are not allowed to do this."},
		{"422 errors", 422, `{"errors":[{"field":"email"},{"message":"too short"}],"message":"bad"}`, "email, too short"},
		{"400 message", 400, `{"message":"bad input"}`, "bad input"},
		{"400 error object", 400, `{"error":{"message":"nope"}}`, "nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := c.Me(context.Background())
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tc.status, apiErr.Status)
			require.Equal(t, tc.want, apiErr.Message)
		})
	}
}

func TestNonJSONResponseBecomesError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(502)
		_, _ = io.WriteString(w, "<h1>Bad gateway</h1>")
	})
	_, err := c.Me(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 502, apiErr.Status)
	require.Equal(t, "<h1>Bad gateway</h1>", apiErr.Message)
}

func TestSuccessFalseIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":false,"error":"quota exceeded"}`)
	})
	_, err := c.SendChatMessage(context.Background(), "s1", "hi")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.True(t, apiErr.Rejected())
	require.Equal(t, "quota exceeded", apiErr.Message)
}

func TestLevelsFallbackOnlyOn404(t *testing.T) {
	var hits []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		switch r.URL.Path {
		case "/api/levels/subject-level/7":
			writeJSON(w, 404, `{"message":"not here"}`)
		case "/api/learning/subject-levels/7/levels":
			writeJSON(w, 200, `{"success":true,"data":[{"id":2,"level_index":2},{"id":1,"level_index":1}]}`)
		default:
			writeJSON(w, 500, `{"error":"unexpected"}`)
		}
	})
	levels, err := c.LevelsBySubjectLevel(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, levels, 2)
	require.Equal(t, journey.ID("1"), levels[0].ID)
	require.Equal(t, []string{"/api/levels/subject-level/7", "/api/learning/subject-levels/7/levels"}, hits)

	hits = nil
	_, err = c.LevelsBySubjectLevel(context.Background(), "8")
	require.Error(t, err)
	require.Len(t, hits, 1, "a 500 must not trigger the fallback")
}

func TestSubjectsFallbackKeepsOriginalError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/subjects" {
			writeJSON(w, 500, `{"error":"primary failed"}`)
			return
		}
		writeJSON(w, 404, `{"message":"fallback failed"}`)
	})
	_, err := c.Subjects(context.Background())
	require.EqualError(t, err, "primary failed")
}

func TestSubjectLevelsByClassFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/subjects/class/2" {
			writeJSON(w, 500, `{"error":"nope"}`)
			return
		}
		require.Equal(t, "/api/learning/classes/2/subjects", r.URL.Path)
		writeJSON(w, 200, `{"success":true,"data":[{"id":11,"subjects":{"id":3,"name":"Math"}}]}`)
	})
	out, err := c.SubjectLevelsByClass(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "Math", out[0].SubjectInfo().Name)
}

func TestJourneyMapWrappedShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":true,"data":{"levels":[{"id":1,"status":"completed","is_unlocked":true},{"level_id":2,"journey_status":"current"}]}}`)
	})
	entries, err := c.JourneyMap(context.Background(), "5")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, journey.ProgressCompleted, entries[0].Status)
	require.True(t, entries[1].MarkedCurrent)
}

func TestLevelSortsMaterials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":true,"data":{"id":4,"title":"Fractions","materials":[{"id":9,"order_index":2},{"id":8,"order_index":1}]}}`)
	})
	lvl, err := c.Level(context.Background(), "4")
	require.NoError(t, err)
	require.Equal(t, journey.ID("8"), lvl.Materials[0].ID)
}

func TestCompleteLevelSendsEmptyObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/progress/levels/4/complete", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{}`, string(body))
		writeJSON(w, 200, `{"success":true,"message":"Nice work","data":{"points_earned":20}}`)
	})
	res, err := c.CompleteLevel(context.Background(), "4")
	require.NoError(t, err)
	require.Equal(t, "Nice work", res.Message)
	require.Equal(t, 20, res.PointsEarned)
}

func TestLoginInstallsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ana@example.com", body["email"])
		writeJSON(w, 200, `{"success":true,"data":{"token":"abc","user":{"id":1,"username":"ana","profile_complete":true}}}`)
	})
	res, err := c.Login(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "abc", c.Token())
	require.True(t, res.User.ProfileComplete)

	_, err = c.Login(context.Background(), " ", "")
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestProfileUnwrapsNestedProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":true,"data":{"profile":{"full_name":"Ana","class_id":2,"points":40,"streak":{"current":4,"longest":9}}}}`)
	})
	p, err := c.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "SMP", p.ClassLabel())
	require.Equal(t, 40, p.Points.Total)
	require.Equal(t, 9, p.Streak.Longest)
}

func TestNotificationsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "unread-count") {
			writeJSON(w, 200, `{"success":true,"data":{"unread_count":3}}`)
			return
		}
		require.Equal(t, "true", r.URL.Query().Get("unread_only"))
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(w, 200, `{"success":true,"data":[{"id":1,"title":"Hi"}]}`)
	})
	list, err := c.Notifications(context.Background(), true, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	n, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestUploadAvatarMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("avatar")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "me.png", hdr.Filename)
		writeJSON(w, 200, `{"success":true,"data":{"avatar_url":"https://cdn/me.png"}}`)
	})
	p, err := c.UploadAvatar(context.Background(), "me.png", strings.NewReader("png"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn/me.png", p.AvatarURL)
}

func TestIsNotFoundAndUnauthorized(t *testing.T) {
	require.True(t, IsNotFound(&Error{Status: 404}))
	require.True(t, IsUnauthorized(&Error{Status: 401}))
	require.False(t, IsNotFound(errors.New("404")))
	require.Equal(t, "fallback", ErrorMessage(errors.New(""), "fallback"))
}
