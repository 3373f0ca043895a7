package pitwall

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type HTTPServer struct {
	server *http.Server
	logger *logrus.Logger

	hostname string
	port     uint16
	handler  *StrategyHandler
}

func NewHTTPServer(config HTTPConfig, handler *StrategyHandler, logger *logrus.Logger) *HTTPServer {
	return &HTTPServer{
		hostname: config.Hostname,
		port:     config.Port,
		handler:  handler,
		logger:   logger,
	}
}

func (h *HTTPServer) Listen() error {
	h.logger.Infof("HTTP server listening on: %s:%d", h.hostname, h.port)

	h.server = &http.Server{
		Handler: h.handler.Router(),
		Addr:    fmt.Sprintf("%s:%d", h.hostname, h.port),
	}

	go func() {
		err := h.server.ListenAndServe()

		if err == http.ErrServerClosed {
			return
		} else if err != nil {
			h.logger.WithError(err).Errorf("Could not start HTTP server")
		}
	}()

	return nil
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	if h.server == nil {
		return nil
	}

	return h.server.Shutdown(ctx)
}
