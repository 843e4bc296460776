package metrics

import (
	"fmt"

	"go-voicemaster/internal/logging"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Server exposes /metrics and /health over fasthttp.
type Server struct {
	srv  *fasthttp.Server
	addr string
}

func NewServer(addr string, reg *Registry, healthy func() bool) *Server {
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(reg.Prometheus(), promhttp.HandlerOpts{}),
	)

	handler := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/metrics":
			metricsHandler(ctx)
		case "/health":
			ctx.SetContentType("application/json")
			if healthy != nil && !healthy() {
				ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
				ctx.SetBodyString(`{"status":"unhealthy"}`)
				return
			}
			ctx.SetBodyString(`{"status":"ok"}`)
		default:
			ctx.Error("not found", fasthttp.StatusNotFound)
		}
	}

	return &Server{
		srv: &fasthttp.Server{
			Handler: handler,
			Name:    "voicemaster",
		},
		addr: addr,
	}
}

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		logging.Info("[METRICS] Listening on %s", s.addr)
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			logging.Error("[METRICS] Server stopped: %v", err)
		}
	}()
}

func (s *Server) Shutdown() error {
	if err := s.srv.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	return nil
}

func (s *Server) Handler() fasthttp.RequestHandler {
	return s.srv.Handler
}
