/*
Package openstars runs Star, a guided-dialogue superconnector.

Star walks a visitor through a short branching questionnaire, pauses as if
typing between messages, calls out to external services (URL analysis,
payment, lead notification) at fixed points and ends every conversation in a
confirmation. Every decision is made by a pure transition engine; the
orchestrator owns the timing, the adapters and the per-session bookkeeping.

# Concept

A conversation is a session moving through a fixed directed graph of steps.
Visitor actions and adapter results are events. Each event is fed to the
engine, which returns the next snapshot, the bot messages to reveal and the
effects to carry out. Snapshots and the append-only timeline are only
committed after the messages are shown, so observers never see a step whose
prompt has not appeared yet.

Sessions carry a generation counter. Restarting a conversation bumps it, and
any result still in flight for an earlier generation is dropped on arrival.

# Usage

	orch := openstars.New(orchestrator.WithLogger(logger))
	defer orch.Close()

	msgs, cancel := orch.Subscribe("visitor-1")
	defer cancel()

	if _, err := orch.Open(ctx, "visitor-1"); err != nil {
		log.Fatal(err)
	}
	for ev := range msgs {
		fmt.Println(ev.Message.Body)
	}

The openstars command wires the same concierge behind an HTTP + SSE API, an
MCP server and a terminal chat.
*/
package openstars
