package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/contentbot/core/logger"
)

// Server serves /metrics for a gatherer.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr and prepares the handler. Use ":0" for an ephemeral port.
func Listen(addr string, g prometheus.Gatherer) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}, nil
}

// Addr is the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	logger.Info(context.Background(), "metrics", "listen", slog.String("listen", s.Addr()))
	go func() {
		if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "metrics", "serve",
				slog.String("err", err.Error()),
			)
		}
	}()
}

// Shutdown stops the listener, waiting at most 5s for in-flight scrapes.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	// Serve may never have run; release the bound port either way.
	_ = s.ln.Close()
	return err
}
