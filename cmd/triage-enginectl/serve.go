package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ServeCmd runs the triage engine until interrupted, accepting
// incidents submitted by other triage-enginectl invocations (or any
// other caller that shares the same store/session backend).
type ServeCmd struct{}

func (c *ServeCmd) Run(rc *runContext) error {
	stack, err := rc.buildStack()
	if err != nil {
		return err
	}
	defer stack.engine.Stop()
	defer stack.store.Close()

	shutdownTracing, err := initTracing(context.Background(), stack.cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	stack.log.Info("triage engine started",
		"worker_count", stack.cfg.Workflow.WorkerCount,
		"queue_depth", stack.cfg.Workflow.QueueDepth,
		"store_driver", stack.cfg.Store.Driver,
		"session_backend", stack.cfg.Session.Backend,
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stack.log.Info("triage engine shutting down")
	return nil
}
