package http

import (
	"net/http"

	"inmocrm/internal/assistant"
	"inmocrm/internal/auth"
	"inmocrm/internal/config"
	"inmocrm/internal/contact"
	"inmocrm/internal/event"
	"inmocrm/internal/http/handler"
	mw "inmocrm/internal/http/middleware"
	"inmocrm/internal/notice"
	"inmocrm/internal/property"
	"inmocrm/internal/stage"
	"inmocrm/internal/transfer"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	health := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
	r.Get("/health", health)

	loc := cfg.Location

	eventSvc := &event.Service{DB: db, Loc: loc}

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	stageH := &handler.StageHandler{Svc: &stage.Service{DB: db}}
	contactH := &handler.ContactHandler{Svc: &contact.Service{DB: db, Loc: loc}, Loc: loc}
	propertyH := &handler.PropertyHandler{Svc: &property.Service{DB: db, Loc: loc}}
	eventH := &handler.EventHandler{Svc: eventSvc, Loc: loc}
	noticeH := &handler.NoticeHandler{Svc: &notice.Service{DB: db, Loc: loc}}
	assistantH := &handler.AssistantHandler{Svc: &assistant.Service{Loc: loc, Events: eventSvc}}
	transferH := &handler.TransferHandler{Svc: &transfer.Service{DB: db, Loc: loc}}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health)
		r.Post("/auth/register", ah.Register)
		r.Post("/auth/login", ah.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(jwtSvc))

			r.Get("/me", ah.Me)
			r.Put("/me", ah.UpdateMe)
			r.Patch("/me", ah.UpdateMe)

			r.Route("/stages", func(r chi.Router) {
				r.Get("/", stageH.List)
				r.Post("/", stageH.Create)
				r.Get("/{id}", stageH.Get)
				r.Put("/{id}", stageH.Update)
				r.Delete("/{id}", stageH.Delete)
			})

			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", contactH.List)
				r.Post("/", contactH.Create)
				r.Get("/reminders", contactH.Reminders)
				r.Get("/{id}", contactH.Get)
				r.Put("/{id}", contactH.Update)
				r.Patch("/{id}", contactH.Update)
				r.Delete("/{id}", contactH.Delete)
				r.Get("/{id}/stage-history", contactH.StageHistory)
			})

			r.Route("/properties", func(r chi.Router) {
				r.Get("/", propertyH.List)
				r.Post("/", propertyH.Create)
				r.Get("/{id}", propertyH.Get)
				r.Put("/{id}", propertyH.Update)
				r.Patch("/{id}", propertyH.Update)
				r.Delete("/{id}", propertyH.Delete)
			})

			r.Route("/events", func(r chi.Router) {
				r.Get("/", eventH.List)
				r.Post("/", eventH.Create)
				r.Get("/{id}", eventH.Get)
				r.Put("/{id}", eventH.Update)
				r.Delete("/{id}", eventH.Delete)
			})

			r.Route("/notices", func(r chi.Router) {
				r.Get("/", noticeH.List)
				r.Get("/{id}", noticeH.Get)
				r.Put("/{id}", noticeH.Update)
				r.Patch("/{id}", noticeH.Update)
				r.Delete("/{id}", noticeH.Delete)
			})

			r.Post("/assistant", assistantH.Ask)

			r.Post("/export", transferH.Export)
			r.Post("/import", transferH.Import)
			r.Get("/metrics", transferH.Metrics)
			r.Get("/dashboard", transferH.Dashboard)
		})
	})

	return r
}
