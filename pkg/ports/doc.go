/*
Package ports defines the driven ports (interfaces) of the OpenStars concierge.

These interfaces decouple the orchestrator from the external services it calls,
allowing the same conversation flow to run against real providers, offline
stand-ins or test fakes.

# Key Interfaces

  - Analyzer: Infers an industry label from a visitor-supplied URL.
  - PaymentGateway: Performs a one-time charge.
  - Notifier: Delivers the final lead record downstream.
  - ChargeGuard: Ensures a charge is attempted at most once per idempotency key.
  - Random: Source of randomness for sampling and typing delays.
*/
package ports
