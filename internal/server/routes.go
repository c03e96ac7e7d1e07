package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withRequestLogging)
	r.Use(s.recoverPanics)

	// Service status.
	r.Get("/", s.handleStatus)

	// Uploads and retrieval.
	r.Post("/upload", s.handleUpload)
	r.Get("/files", s.handleListFiles)
	r.Get("/files/{key}", s.handleDownload)

	// Admin.
	r.Post("/admin/sweep", s.handleSweep)

	return r
}
