// exampleworker hosts the demo functions (Addition, CallAPI) and serves
// them from a RabbitMQ worker process.
//
// Workers scale horizontally — several instances may consume from the
// same task queues.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/jobbroker/internal/broker/rabbitmq"
	"github.com/shaiso/jobbroker/internal/config"
	"github.com/shaiso/jobbroker/internal/examplefuncs"
	"github.com/shaiso/jobbroker/internal/job"
	"github.com/shaiso/jobbroker/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting exampleworker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	brk := rabbitmq.New(rabbitmq.ConfigFromEnv(), logger)
	defer brk.Close()

	if err := config.SetDefault(&config.Configuration{Broker: brk}); err != nil {
		logger.Error("failed to install default configuration", "error", err)
		os.Exit(1)
	}

	functions := []*job.Function{
		examplefuncs.NewAdditionFunction(nil),
		examplefuncs.NewHTTPCallFunction("CallAPI", nil),
	}

	go func() {
		if err := job.RunWorkers(ctx, functions...); err != nil {
			logger.Error("worker loop stopped", "error", err)
			cancel()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	server := &http.Server{Addr: port, Handler: mux}
	go func() {
		logger.Info("listening", "addr", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	server.Close()
	logger.Info("exampleworker stopped")
}
