// exampleclient submits a couple of demo jobs to exampleworker and
// prints their results: an Addition job run synchronously, and a
// CallAPI job fired and forgotten.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/jobbroker/internal/broker/rabbitmq"
	"github.com/shaiso/jobbroker/internal/config"
	"github.com/shaiso/jobbroker/internal/examplefuncs"
	"github.com/shaiso/jobbroker/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	brk := rabbitmq.New(rabbitmq.ConfigFromEnv(), logger)
	defer brk.Close()

	if err := config.SetDefault(&config.Configuration{Broker: brk}); err != nil {
		logger.Error("failed to install default configuration", "error", err)
		os.Exit(1)
	}

	addition := examplefuncs.NewAdditionFunction(nil)
	result, err := addition.RunRemotely(ctx, map[string]any{"a": 3.0, "b": 5.0})
	if err != nil {
		logger.Error("Addition failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Addition result", "result", result)

	callAPI := examplefuncs.NewHTTPCallFunction("CallAPI", nil)
	jobID, err := callAPI.AddToQueue(ctx, map[string]any{
		"url":    "https://example.invalid/webhook",
		"method": "POST",
	})
	if err != nil {
		logger.Error("CallAPI enqueue failed", "error", err)
		os.Exit(1)
	}
	logger.Info("CallAPI enqueued", "job_id", jobID)
}
