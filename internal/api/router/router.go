// Package router assembles the HTTP surface of the clinic simulator.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medforce/clinic-sim/internal/http/handlers"
	httpmiddleware "github.com/medforce/clinic-sim/internal/http/middleware"
	"github.com/medforce/clinic-sim/internal/intake"
	"github.com/medforce/clinic-sim/internal/webchat"
	"github.com/medforce/clinic-sim/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	ChatHandler     *intake.Handler
	WebChatHandler  *webchat.Handler
	PatientsHandler *handlers.PatientsHandler
	GroundTruth     *handlers.GroundTruthHandler
	MetricsHandler  http.Handler
	AdminAuthSecret string

	CORSAllowedOrigins []string

	// Per-IP limit on the chat endpoints. Zero disables limiting.
	ChatRatePerSecond float64
	ChatBurst         int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.ChatHandler != nil {
			public.Group(func(chat chi.Router) {
				if cfg.ChatRatePerSecond > 0 {
					chat.Use(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatBurst))
				}
				chat.Post("/chat", cfg.ChatHandler.HandleChat)
				chat.Get("/chat/{patientID}", cfg.ChatHandler.HandleHistory)
			})
		}
		if cfg.WebChatHandler != nil {
			public.Get("/chat/ws", cfg.WebChatHandler.HandleWebSocket)
		}
		if cfg.PatientsHandler != nil {
			public.Get("/patients", cfg.PatientsHandler.HandleList)
			public.Get("/image/{patientID}/{file}", cfg.PatientsHandler.HandleImage)
		}
		if cfg.GroundTruth != nil {
			public.Get("/process/{patientID}/preconsult", cfg.GroundTruth.HandleProcessRawData)
		}
	})

	// Clinic staff endpoints.
	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.ChatHandler != nil {
			admin.Post("/chat/{patientID}/reset", cfg.ChatHandler.HandleReset)
		}
		if cfg.GroundTruth != nil {
			admin.Post("/patients/{patientID}/groundtruth", cfg.GroundTruth.HandleGenerate)
			admin.Post("/patients/{patientID}/transcript", cfg.GroundTruth.HandleTranscript)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
