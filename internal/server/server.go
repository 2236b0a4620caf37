// Package server exposes slide conversion over HTTP.
package server

import (
	"net/http"
	"time"

	pptxhtml "github.com/VantageDataChat/GoPPTHTML"
)

// Options configures a Server. Images is required.
type Options struct {
	Images         pptxhtml.ImageStore
	Oracle         pptxhtml.StyleOracle
	URLPrefix      string
	MaxUploadBytes int64
	Workers        int
	SlideWidthPx   float64
	SlideHeightPx  float64
}

// Server holds the collaborators shared by all requests. Conversion state is
// created per request.
type Server struct {
	images     pptxhtml.ImageStore
	urlPrefix  string
	maxUpload  int64
	assembler  *pptxhtml.Assembler
	decomposer *pptxhtml.Decomposer
	writer     pptxhtml.PackageWriter
}

func New(opts Options) *Server {
	if opts.URLPrefix == "" {
		opts.URLPrefix = pptxhtml.DefaultImageURLPrefix
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	decomposeOpts := []pptxhtml.DecomposerOption{
		pptxhtml.WithImageStore(opts.Images, opts.URLPrefix),
		pptxhtml.WithDecomposeWorkers(opts.Workers),
		pptxhtml.WithSlideSize(opts.SlideWidthPx, opts.SlideHeightPx),
	}
	if opts.Oracle != nil {
		decomposeOpts = append(decomposeOpts, pptxhtml.WithStyleOracle(opts.Oracle))
	}
	return &Server{
		images:    opts.Images,
		urlPrefix: opts.URLPrefix,
		maxUpload: opts.MaxUploadBytes,
		assembler: pptxhtml.NewAssembler(
			pptxhtml.WithImageResolver(pptxhtml.StoreImages{Store: opts.Images, URLPrefix: opts.URLPrefix}),
			pptxhtml.WithWorkers(opts.Workers),
		),
		decomposer: pptxhtml.NewDecomposer(decomposeOpts...),
		writer:     pptxhtml.NewPPTXWriter(pptxhtml.WithWriterImageStore(opts.Images, opts.URLPrefix)),
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return ChainMiddleware(
		mux,
		WithLogging,
		WithRecovery,
		WithRequestID,
	)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /api/slides/upload", s.handleUpload)
	mux.HandleFunc("POST /api/slides/export", s.handleExport)
	mux.HandleFunc("GET "+s.urlPrefix+"{handle}", s.handleImage)
}

// NewHTTPServer returns an http.Server serving s on addr.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
