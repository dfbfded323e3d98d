package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/formcraft/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates an HTTP server serving the designer, the dashboard, the
// public fill-in pages and the JSON API.
func NewServer(svc *ops.Service, logger *slog.Logger, version string) *http.Server {
	return &http.Server{
		Addr:              svc.Config().Addr(),
		Handler:           NewHandler(svc, logger, version),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed handler with logging and security headers.
func NewHandler(svc *ops.Service, logger *slog.Logger, version string) http.Handler {
	tmplFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic("embedded templates missing: " + err.Error())
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("embedded static files missing: " + err.Error())
	}

	h := &Handlers{
		svc:      svc,
		cfg:      svc.Config(),
		renderer: NewRenderer(tmplFS, version, logger),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Dashboard and designer pages
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/forms", http.StatusFound)
	})
	mux.HandleFunc("GET /forms", h.HandleDashboard)
	mux.HandleFunc("POST /forms", h.HandleCreate)
	mux.HandleFunc("GET /forms/{id}", h.HandleDetail)
	mux.HandleFunc("POST /forms/{id}/delete", h.HandleDelete)
	mux.HandleFunc("POST /forms/{id}/publish", h.HandlePublish)
	mux.HandleFunc("GET /forms/{id}/preview", h.HandlePreview)
	mux.HandleFunc("GET /forms/{id}/designer", h.HandleDesigner)
	mux.HandleFunc("POST /forms/{id}/designer/drop", h.HandleDesignerDrop)
	mux.HandleFunc("POST /forms/{id}/designer/elements/{elementID}", h.HandleDesignerUpdate)
	mux.HandleFunc("POST /forms/{id}/designer/elements/{elementID}/remove", h.HandleDesignerRemove)

	// Public fill-in
	mux.HandleFunc("GET /submit/{shareURL}", h.HandleSubmitPage)
	mux.HandleFunc("POST /submit/{shareURL}", h.HandleSubmit)

	// JSON API
	mux.HandleFunc("GET /api/palette", h.APIPalette)
	mux.HandleFunc("GET /api/stats", h.APIStats)
	mux.HandleFunc("GET /api/forms", h.APIListForms)
	mux.HandleFunc("POST /api/forms", h.APICreateForm)
	mux.HandleFunc("GET /api/forms/{id}", h.APIGetForm)
	mux.HandleFunc("DELETE /api/forms/{id}", h.APIDeleteForm)
	mux.HandleFunc("GET /api/forms/{id}/design", h.APIGetDesign)
	mux.HandleFunc("PUT /api/forms/{id}/content", h.APISaveContent)
	mux.HandleFunc("POST /api/forms/{id}/drop", h.APIDrop)
	mux.HandleFunc("PATCH /api/forms/{id}/elements/{elementID}", h.APIUpdateElement)
	mux.HandleFunc("DELETE /api/forms/{id}/elements/{elementID}", h.APIRemoveElement)
	mux.HandleFunc("POST /api/forms/{id}/publish", h.APIPublish)
	mux.HandleFunc("GET /api/forms/{id}/submissions", h.APIListSubmissions)
	mux.HandleFunc("POST /api/purge", h.APIPurge)

	return withLogging(logger, securityHeaders(mux))
}

// securityHeaders wraps a handler to set standard security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts down gracefully.
func Run(srv *http.Server, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	if host, _, _ := net.SplitHostPort(srv.Addr); host == "0.0.0.0" || host == "" || strings.HasPrefix(host, "::") {
		logger.Warn("web server bound to all interfaces; anyone on your network can reach it", "addr", srv.Addr)
	}

	logger.Info("formcraft web listening", "url", "http://"+ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	logger.Info("shutting down web server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
