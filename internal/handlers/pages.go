package handlers

import (
	"embed"
	"html/template"
	"io/fs"
	"time"

	"devlense/internal/config"
	"devlense/internal/middleware"
	"devlense/internal/models"
	contextutils "devlense/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names accepted by c.HTML
const (
	pageHome      = "home"
	pageLogin     = "login"
	pageBugReport = "bug_report"
	pageQnA       = "qna"
)

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04")
	},
}

// pageRenderer gives every page its own template set so each can define
// "content" inside the shared layout.
type pageRenderer struct {
	pages map[string]*template.Template
}

// newPageRenderer parses the layout together with each page template
func newPageRenderer(templates fs.FS) (*pageRenderer, error) {
	r := &pageRenderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{pageHome, pageLogin, pageBugReport, pageQnA} {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templates, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to parse %s template", name)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Instance implements render.HTMLRender
func (r *pageRenderer) Instance(name string, data any) render.Render {
	return render.HTML{Template: r.pages[name], Name: "layout", Data: data}
}

// pageData is what every page template receives
type pageData struct {
	Locale        contextutils.Locale
	Title         string
	Nav           models.Navigation
	Dialogs       []string
	Toasts        []string
	Error         *pageError
	Form          interface{}
	Questions     []models.Question
	MaxImageBytes int64
}

// T returns the localized site text for key
func (d pageData) T(key string, args ...interface{}) string {
	return contextutils.T(contextutils.MessageKey(key), d.Locale, args...)
}

// ErrorText returns the localized message for an error code
func (d pageData) ErrorText(code string) string {
	return contextutils.GetLocalizedMessage(contextutils.ErrorCode(code), d.Locale)
}

// newPageData fills the layout fields and takes any queued flashes
func newPageData(c *gin.Context, session *models.Session, title string) pageData {
	locale := middleware.RequestLocale(c)
	return pageData{
		Locale:        locale,
		Title:         title,
		Nav:           BuildNavigation(session, locale),
		Dialogs:       popFlashes(c, flashDialog),
		Toasts:        popFlashes(c, flashToast),
		MaxImageBytes: config.MaxAttachmentBytes,
	}
}

// loginForm is the login page's form state
type loginForm struct {
	Username string
}
