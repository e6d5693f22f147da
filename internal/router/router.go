package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"testwise-backend/internal/handlers"
	"testwise-backend/internal/middleware"
	"testwise-backend/internal/models"
	"testwise-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	groupHandler *handlers.GroupHandler,
	topicHandler *handlers.TopicHandler,
	sectionHandler *handlers.SectionHandler,
	subsectionHandler *handlers.SubsectionHandler,
	questionHandler *handlers.QuestionHandler,
	testHandler *handlers.TestHandler,
	progressHandler *handlers.ProgressHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	authLimiter := middleware.NewAuthRateLimiter()

	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/me", authHandler.Me)
			})
		})

		// ──── User Routes (admin) ────
		r.Route("/users", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(adminOnly)
			r.Post("/", userHandler.Create)
			r.Get("/", userHandler.List)
			r.Get("/{id}", userHandler.Get)
			r.Put("/{id}", userHandler.Update)
			r.Post("/{id}/archive", userHandler.Archive)
			r.Post("/{id}/restore", userHandler.Restore)
			r.Delete("/{id}", userHandler.DeletePermanently)
		})

		// ──── Group Routes (admin/teacher) ────
		r.Route("/groups", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(staffOnly)
			r.Post("/", groupHandler.Create)
			r.Get("/", groupHandler.List)
			r.Get("/{id}", groupHandler.Get)
			r.Put("/{id}", groupHandler.Update)
			r.Post("/{id}/archive", groupHandler.Archive)
			r.Post("/{id}/restore", groupHandler.Restore)
			r.Delete("/{id}", groupHandler.DeletePermanently)

			r.Get("/{id}/students", groupHandler.ListStudents)
			r.Post("/{id}/students/{userID}", groupHandler.AddStudent)
			r.Delete("/{id}/students/{userID}", groupHandler.RemoveStudent)
			r.Get("/{id}/teachers", groupHandler.ListTeachers)
			r.Post("/{id}/teachers/{userID}", groupHandler.AddTeacher)
			r.Delete("/{id}/teachers/{userID}", groupHandler.RemoveTeacher)
		})

		// ──── Topic Routes ────
		r.Route("/topics", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", topicHandler.List)
			r.Get("/{id}", topicHandler.Get)
			r.Get("/{id}/progress", topicHandler.Progress)

			r.Group(func(r chi.Router) {
				r.Use(staffOnly)
				r.Post("/", topicHandler.Create)
				r.Put("/{id}", topicHandler.Update)
				r.Post("/{id}/archive", topicHandler.Archive)
				r.Post("/{id}/restore", topicHandler.Restore)
				r.Delete("/{id}", topicHandler.DeletePermanently)
				r.Post("/{id}/generate-final", testHandler.GenerateGlobalFinal)
			})
		})

		// ──── Section Routes ────
		r.Route("/sections", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", sectionHandler.List)
			r.Get("/{id}", sectionHandler.Get)
			r.Get("/{id}/progress", sectionHandler.Progress)

			r.Group(func(r chi.Router) {
				r.Use(staffOnly)
				r.Post("/", sectionHandler.Create)
				r.Put("/{id}", sectionHandler.Update)
				r.Post("/{id}/archive", sectionHandler.Archive)
				r.Post("/{id}/restore", sectionHandler.Restore)
				r.Delete("/{id}", sectionHandler.DeletePermanently)
				r.Post("/{id}/generate-hinted", testHandler.GenerateHinted)
				r.Post("/{id}/generate-final", testHandler.GenerateSectionFinal)
			})
		})

		// ──── Subsection Routes ────
		r.Route("/subsections", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", subsectionHandler.List)
			r.Get("/{id}", subsectionHandler.Get)
			r.Post("/{id}/view", subsectionHandler.View)

			r.Group(func(r chi.Router) {
				r.Use(staffOnly)
				r.Post("/", subsectionHandler.Create)
				r.Put("/{id}", subsectionHandler.Update)
				r.Post("/{id}/upload", subsectionHandler.Upload)
				r.Post("/{id}/archive", subsectionHandler.Archive)
				r.Post("/{id}/restore", subsectionHandler.Restore)
				r.Delete("/{id}", subsectionHandler.DeletePermanently)
			})
		})

		// ──── Question Routes (admin/teacher) ────
		r.Route("/questions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(staffOnly)
			r.Post("/", questionHandler.Create)
			r.Get("/", questionHandler.List)
			r.Get("/{id}", questionHandler.Get)
			r.Put("/{id}", questionHandler.Update)
			r.Post("/{id}/archive", questionHandler.Archive)
			r.Post("/{id}/restore", questionHandler.Restore)
			r.Delete("/{id}", questionHandler.DeletePermanently)
		})

		// ──── Test Routes ────
		r.Route("/tests", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", testHandler.List)
			r.Get("/{id}", testHandler.Get)
			r.Get("/{id}/availability", testHandler.Availability)
			r.Post("/{id}/start", testHandler.Start)

			r.Group(func(r chi.Router) {
				r.Use(staffOnly)
				r.Post("/", testHandler.Create)
				r.Put("/{id}", testHandler.Update)
				r.Post("/{id}/archive", testHandler.Archive)
				r.Post("/{id}/restore", testHandler.Restore)
				r.Delete("/{id}", testHandler.DeletePermanently)
			})
		})

		// ──── Attempt Routes ────
		r.Route("/attempts", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", testHandler.ListAttempts)
			r.Post("/{id}/submit", testHandler.Submit)
		})

		// ──── Progress Routes ────
		r.Route("/progress", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/topics", progressHandler.ListTopics)
			r.Get("/sections", progressHandler.ListSections)
			r.Get("/subsections", progressHandler.ListSubsections)
			r.Get("/tests", testHandler.ListAttempts)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/profile", progressHandler.Profile)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
