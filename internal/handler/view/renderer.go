package view

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carebook/internal/middleware"
	"github.com/jwalitptl/carebook/internal/model"
	"github.com/jwalitptl/carebook/internal/service/notification"
)

// Disclaimer is shown on every page.
const Disclaimer = "Transport services are provided by third parties."

const (
	PageIndex            = "index"
	PageRegister         = "register"
	PageLogin            = "login"
	PageBook             = "book"
	PagePatientDashboard = "patient_dashboard"
	PageAdminDashboard   = "admin_dashboard"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static is the asset tree served under /static.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

type Profile struct {
	Name     string
	Initials string
	Role     model.Role
}

// Renderer executes page templates with the context every page shares:
// profile, notifications, flashes and the disclaimer.
type Renderer struct {
	pages map[string]*template.Template
	notes notification.Service
}

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04")
	},
}

func NewRenderer(notes notification.Service) (*Renderer, error) {
	r := &Renderer{
		pages: make(map[string]*template.Template),
		notes: notes,
	}
	for _, page := range []string{PageIndex, PageRegister, PageLogin, PageBook, PagePatientDashboard, PageAdminDashboard} {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// HTML renders page. Values in data override the shared context.
func (r *Renderer) HTML(c *gin.Context, status int, page string, data gin.H) {
	t, ok := r.pages[page]
	if !ok {
		log.Ctx(c.Request.Context()).Error().Str("page", page).Msg("unknown page template")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	ctx := gin.H{
		"disclaimer":  Disclaimer,
		"flashes":     middleware.ConsumeFlashes(c),
		"profile":     (*Profile)(nil),
		"notifs":      []*model.Notification(nil),
		"notif_count": 0,
	}

	if s := middleware.SessionFrom(c); s != nil {
		ctx["profile"] = &Profile{Name: s.Name, Initials: s.Initials(), Role: s.Role}

		notifs, err := r.notes.NotificationsFor(c.Request.Context(), s)
		if err != nil {
			log.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to load notifications")
		}
		ctx["notifs"] = notifs
		ctx["notif_count"] = len(notifs)
	}

	for k, v := range data {
		ctx[k] = v
	}

	c.Render(status, render.HTML{Template: t, Name: "layout", Data: ctx})
}
