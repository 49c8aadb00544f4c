package handler

import (
	"net/http"

	"docconverter/config"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates the HTTP router with all routes configured
func NewRouter(cfg *config.Config, conversions *ConversionHandler, jobs *JobHandler) http.Handler {
	router := mux.NewRouter()
	router.Use(RequestLogger, RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.HandleFunc("/", Home).Methods(http.MethodGet)
	router.HandleFunc("/health", Health).Methods(http.MethodGet)
	router.HandleFunc("/favicon.ico", Favicon).Methods(http.MethodGet)

	router.HandleFunc("/docx2pdf", conversions.DocxToPDF).Methods(http.MethodPost)
	router.HandleFunc("/pdf2docx", conversions.PDFToDocx).Methods(http.MethodPost)

	router.HandleFunc("/jobs/{name}", jobs.Enqueue).Methods(http.MethodPost)
	router.HandleFunc("/jobs/{id}", jobs.Status).Methods(http.MethodGet)

	// Catch-all storage trigger, registered last.
	router.HandleFunc("/{name}", conversions.Trigger).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"X-Page-Count",
			"X-Job-ID",
		},
		MaxAge: 300,
	})

	return c.Handler(router)
}
