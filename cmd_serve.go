package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"perfdash/config"
	c "perfdash/core"
)

func newServeCmd() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard http api",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().String("addr", ":8080", "address to listen on")
	cmd.Flags().String("source", config.SourceYahoo, "price source: csv, alphavantage, yahoo or alpaca")
	_ = v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("source", cmd.Flags().Lookup("source"))

	return cmd
}

func serve(cfg config.Config) error {
	// initialize context and signal handler, listen for interrupt and term signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}

	sc := &c.ServiceContext{
		Context: ctx,
		Loader:  loader,
		Config:  cfg,
	}

	// get http server, makes all of the endpoints and routes
	s := c.GetHttpServer(sc)

	go func() {
		log.Printf("Starting perfdash server on %s using %s prices", s.Addr, cfg.Source)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// wait here until the context is closed (ie, ctrl+C)
	<-ctx.Done()
	log.Println("Received shutdown signal, shutting down gracefully...")

	// this gives the server 10 seconds to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped successfully")
	return nil
}
