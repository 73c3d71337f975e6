/*
Package orchestrator drives conversations through the transition engine.

Each session id owns one actor goroutine with a bounded inbox. The actor feeds
inbound events to the engine one at a time, reveals bot messages after a
random composing pause, commits the new snapshot and carries out the effects
the engine asked for: adapter calls run on their own goroutines, delays arm
timers, notifications are fire-and-forget. Every asynchronous outcome is
queued back onto the same inbox stamped with the generation and token that
requested it, so results addressed to an earlier generation are discarded.

Usage:

	orch := orchestrator.New(engine,
		orchestrator.WithAnalyzer(analyzer),
		orchestrator.WithPaymentGateway(gateway),
		orchestrator.WithNotifier(notifier),
	)
	defer orch.Close()

	msgs, cancel := orch.Subscribe("visitor-1")
	defer cancel()

	gen, err := orch.Open(ctx, "visitor-1")
*/
package orchestrator
