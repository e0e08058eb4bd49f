package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tentens-tech/shared-debrid/internal/bootstrap"
	"github.com/tentens-tech/shared-debrid/internal/config"
	httpdelivery "github.com/tentens-tech/shared-debrid/internal/delivery/http"
)

func NewServe() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server",
		RunE:  sharedDebridProcess,
	}
}

func sharedDebridProcess(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configuration := config.NewConfig()

	errGroup, errGroupCtx := errgroup.WithContext(ctx)

	app, err := bootstrap.NewApplication(errGroupCtx, configuration)
	if err != nil {
		return err
	}
	server := httpdelivery.New(app)

	errGroup.Go(func() error {
		log.Infof("Server is starting on :%v with %v storage", configuration.Server.Port, configuration.Storage.Type)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	errGroup.Go(func() error {
		<-errGroupCtx.Done()

		ctxWithTimeout, cancel := context.WithTimeout(context.Background(), configuration.Server.Timeout.Shutdown)
		defer cancel()

		log.Info("Server is shutting down")
		if err := server.Server.Shutdown(ctxWithTimeout); err != nil {
			log.Errorf("Server was unable to gracefully shutdown due to err: %+v", err)
			return err
		}
		return nil
	})

	return errGroup.Wait()
}
