package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

var exitSignals = []os.Signal{syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM}

// notifyContext returns a context cancelled by the first exit signal and a
// function reporting which signal it was, or nil.
func notifyContext(parent context.Context) (context.Context, func() os.Signal, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, exitSignals...)

	var caught atomic.Value
	go func() {
		select {
		case sig := <-ch:
			caught.Store(sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	received := func() os.Signal {
		sig, _ := caught.Load().(os.Signal)
		return sig
	}
	stop := func() {
		signal.Stop(ch)
		cancel()
	}
	return ctx, received, stop
}

// signalExitCode follows the shell convention of 128 plus the signal number
func signalExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return exitFailure
}
