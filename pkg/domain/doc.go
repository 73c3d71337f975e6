/*
Package domain contains the core domain models of the OpenStars concierge.

It defines the vocabulary shared by the transition engine, the session store
and the orchestrator. This package is kept pure and free of I/O.

# Key Entities

  - Step: A vertex of the dialogue graph (optionally parameterized by a capture field).
  - Session: The per-visitor snapshot (current step, answers, premium flag, pending work).
  - Message: An immutable entry of the append-only timeline.
  - Event: An input to the engine (user action, adapter outcome or continuation).
  - Effect: Work the engine asks the host to perform (adapter call, delay, notification).
*/
package domain
