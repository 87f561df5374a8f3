package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photoface/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	foldersHandler := handlers.NewFoldersHandler(s.store)
	scanHandler := handlers.NewScanHandler(s.config, s.store, s.detector, s.jobManager)
	clusterHandler := handlers.NewClusterHandler(s.config, s.store)
	personsHandler := handlers.NewPersonsHandler(s.store)
	facesHandler := handlers.NewFacesHandler(s.config, s.store)
	albumsHandler := handlers.NewAlbumsHandler(s.store)
	exportHandler := handlers.NewExportHandler(s.config, s.store, s.jobManager)
	statsHandler := handlers.NewStatsHandler(s.store)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Folders
		r.Get("/folders", foldersHandler.List)
		r.Post("/folders", foldersHandler.Add)
		r.Get("/folders/{id}", foldersHandler.Get)
		r.Delete("/folders/{id}", foldersHandler.Remove)

		// Scan (long-running operation)
		r.Post("/scan", scanHandler.Start)
		r.Get("/scan/{jobId}", scanHandler.Status)
		r.Get("/scan/{jobId}/events", scanHandler.Events)
		r.Delete("/scan/{jobId}", scanHandler.Cancel)

		// Clustering
		r.Post("/cluster", clusterHandler.Run)

		// Persons
		r.Get("/persons", personsHandler.List)
		r.Get("/persons/{id}", personsHandler.Get)
		r.Put("/persons/{id}/name", personsHandler.Rename)
		r.Post("/persons/{id}/confirm", personsHandler.Confirm)
		r.Post("/persons/{id}/merge", personsHandler.Merge)
		r.Delete("/persons/{id}", personsHandler.Delete)
		r.Get("/persons/{id}/faces", personsHandler.Faces)

		// Faces
		r.Get("/faces/{id}", facesHandler.Get)
		r.Get("/faces/{id}/similar", facesHandler.Similar)
		r.Put("/faces/{id}/person", facesHandler.Move)
		r.Put("/faces/{id}/confirm", facesHandler.Confirm)
		r.Delete("/faces/{id}", facesHandler.Delete)

		// Albums
		r.Get("/albums", albumsHandler.List)
		r.Put("/persons/{id}/album", albumsHandler.Set)
		r.Delete("/persons/{id}/album", albumsHandler.Remove)
		r.Get("/persons/{id}/album/photos", albumsHandler.Photos)

		// Export (long-running operation)
		r.Post("/export", exportHandler.Start)
		r.Get("/export/{jobId}", exportHandler.Status)
		r.Get("/export/{jobId}/events", exportHandler.Events)
		r.Delete("/export/{jobId}", exportHandler.Cancel)

		// Stats and settings
		r.Get("/stats", statsHandler.Get)
		r.Get("/settings", statsHandler.Settings)
		r.Put("/settings", statsHandler.UpdateSettings)
	})
}
