// Package payment provides ports.PaymentGateway implementations.
//
// A declined card is an outcome, not an error: gateways return
// ChargeOutcome{Approved: false} for it and reserve errors for cases where
// the result of the charge is unknown.
package payment
