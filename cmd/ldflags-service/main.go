package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/TimurManjosov/goflagship/internal/ldconfig"
	"github.com/TimurManjosov/goflagship/internal/ldlog"
	"github.com/TimurManjosov/goflagship/internal/telemetry"
	"github.com/TimurManjosov/goflagship/ldclient"
)

func main() {
	cfg, err := ldconfig.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ldlog.NewDefault()
	client, err := ldclient.MakeClient(cfg, logger, nil, 5*time.Second)
	if err != nil {
		log.Fatalf("ldclient: %v", err)
	}
	defer client.Close()

	telemetry.Init()

	var adminKeyHash []byte
	if adminKey := os.Getenv("LDFLAGS_SERVICE_ADMIN_KEY"); adminKey != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash admin key: %v", err)
		}
		adminKeyHash = hash
	}

	srvAPI := NewServer(client, adminKeyHash)

	addr := os.Getenv("LDFLAGS_SERVICE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Printf("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Println("stopped")
}
