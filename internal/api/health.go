package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/tnr/internal/store"
)

// Checker reports whether a dependency of the server is usable.
type Checker interface {
	Check() error
}

// MultiChecker fails when any of its checkers fails, reporting every
// failure one per line.
type MultiChecker struct {
	checkers []Checker
}

func NewMultiChecker(checkers ...Checker) *MultiChecker {
	return &MultiChecker{checkers: checkers}
}

func (mc *MultiChecker) Check() error {
	var result *multierror.Error
	for _, checker := range mc.checkers {
		if err := checker.Check(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = func(es []error) string {
		msgs := make([]string, len(es))
		for i, err := range es {
			msgs[i] = err.Error()
		}
		return strings.Join(msgs, "\n")
	}
	return result.ErrorOrNil()
}

// storePingTimeout bounds a database health probe.
const storePingTimeout = 2 * time.Second

// StoreChecker pings the database.
type StoreChecker struct {
	backend *store.Backend
}

func NewStoreChecker(b *store.Backend) *StoreChecker {
	return &StoreChecker{backend: b}
}

func (c *StoreChecker) Check() error {
	ctx, cancel := context.WithTimeout(context.Background(), storePingTimeout)
	defer cancel()
	return c.backend.Ping(ctx)
}

// HealthCheckHttpHandler answers 204 when the checker passes and 503 with
// the failure text otherwise.
type HealthCheckHttpHandler struct {
	checker Checker
}

func NewHealthCheckHttpHandler(checker Checker) *HealthCheckHttpHandler {
	return &HealthCheckHttpHandler{
		checker: checker,
	}
}

func (h *HealthCheckHttpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h.checker.Check()
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	log.WithError(err).Warn("health check failed")
	w.WriteHeader(http.StatusServiceUnavailable)
	if _, err := w.Write([]byte(err.Error())); err != nil {
		log.WithError(err).Warn("writing health check response")
	}
}
