package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"devlense/internal/config"
	"devlense/internal/models"
	contextutils "devlense/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hrefs(nav models.Navigation) []string {
	out := make([]string, 0, len(nav.Items))
	for _, item := range nav.Items {
		out = append(out, item.Href)
	}
	return out
}

func TestBuildNavigation(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		nav := BuildNavigation(nil, contextutils.LocaleKorean)
		assert.False(t, nav.Authenticated)
		assert.Empty(t, nav.Username)
		assert.Equal(t, []string{"/#about", "/#services", "/#showcase", "/#projects", config.LoginRoute}, hrefs(nav))

		login := nav.Items[len(nav.Items)-1]
		assert.Equal(t, "login", login.Action)
		assert.Equal(t, "로그인", login.Label)
		assert.Equal(t, "로그인을 하시면 오류수정과 Q&A를 하실 수 있습니다.", login.Tooltip)
		for _, item := range nav.Items {
			assert.False(t, item.MemberOnly)
		}
	})

	t.Run("signed in", func(t *testing.T) {
		nav := BuildNavigation(memberSession(), contextutils.LocaleEnglish)
		assert.True(t, nav.Authenticated)
		assert.Equal(t, "member", nav.Username)
		assert.Equal(t, []string{"/#about", "/#services", "/#showcase", "/#projects", config.QnARoute, config.BugReportRoute, "/logout"}, hrefs(nav))
		assert.True(t, nav.Items[4].MemberOnly)
		assert.True(t, nav.Items[5].MemberOnly)
		assert.Equal(t, "logout", nav.Items[6].Action)
		assert.Equal(t, "Log out", nav.Items[6].Label)
	})
}

func TestSiteHandler(t *testing.T) {
	t.Run("home renders every section", func(t *testing.T) {
		b := newBrowser(t, newTestDeps())
		w := b.get("/")
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		for _, id := range []string{"about", "services", "showcase", "projects"} {
			assert.Contains(t, body, `id="`+id+`"`)
		}
		assert.Contains(t, body, `href="/login"`)
		assert.NotContains(t, body, `action="/logout"`)
	})

	t.Run("home shows member links when signed in", func(t *testing.T) {
		deps := newTestDeps()
		b := newBrowser(t, deps).signedIn(deps, "tok-1", memberSession())
		w := b.get("/?lang=en")
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `href="/bug-report"`)
		assert.Contains(t, body, `action="/logout"`)
		assert.Contains(t, body, `<html lang="en">`)
	})

	t.Run("navigation endpoint", func(t *testing.T) {
		b := newBrowser(t, newTestDeps())
		w := b.get("/v1/navigation")
		require.Equal(t, http.StatusOK, w.Code)
		var nav models.Navigation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &nav))
		assert.False(t, nav.Authenticated)
		assert.Len(t, nav.Items, 5)
	})

	t.Run("static assets and health", func(t *testing.T) {
		b := newBrowser(t, newTestDeps())
		assert.Equal(t, http.StatusOK, b.get("/assets/site.js").Code)
		assert.Equal(t, http.StatusOK, b.get("/assets/site.css").Code)
		assert.Equal(t, http.StatusOK, b.get("/health").Code)
		assert.Equal(t, http.StatusNotFound, b.get("/v1/nope").Code)

		w := b.get("/v1/version")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"service":"devlense"`)
	})
}
