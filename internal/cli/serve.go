package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tnr/internal/api"
	"github.com/mesh-intelligence/tnr/internal/attachments"
	"github.com/mesh-intelligence/tnr/internal/auth"
)

const (
	shutdownTimeout      = 10 * time.Second
	sessionPurgeInterval = time.Hour
	readHeaderTimeout    = 10 * time.Second
)

func (a *app) newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  "Serve the JSON API, the health and metrics endpoints and the web application\nuntil SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			if listen != "" {
				s.ListenAddr = listen
			}
			b, err := attach(s)
			if err != nil {
				return err
			}
			defer b.Detach()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var google *auth.Google
			if s.Google.Enabled() {
				if google, err = auth.NewGoogle(ctx, s.Google); err != nil {
					return systemError(fmt.Errorf("configure google sign-in: %w", err))
				}
			}
			authSvc := auth.NewService(b, s.SessionTTL)
			files := attachments.NewOSStorage(s.UploadsDir, s.MaxUploadBytes)
			handler := api.NewServer(b, authSvc, google, files, api.Options{
				CookieSecure: s.CookieSecure,
				StaticDir:    s.StaticDir,
			})

			srv := &http.Server{
				Addr:              s.ListenAddr,
				Handler:           handler,
				ReadHeaderTimeout: readHeaderTimeout,
			}
			go purgeSessions(ctx, authSvc, sessionPurgeInterval)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			log.WithFields(log.Fields{
				"addr":    s.ListenAddr,
				"backend": s.Backend,
				"google":  google != nil,
			}).Info("tnr server listening")

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return systemError(fmt.Errorf("serve: %w", err))
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return systemError(fmt.Errorf("shutdown: %w", err))
			}
			log.Info("tnr server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overriding listen_addr")
	return cmd
}

// purgeSessions drops expired sessions every interval until ctx ends.
func purgeSessions(ctx context.Context, svc *auth.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("purging expired sessions")
				continue
			}
			if n > 0 {
				log.WithField("sessions", n).Debug("purged expired sessions")
			}
		}
	}
}
