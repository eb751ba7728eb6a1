// Package gateway issues outbound HTTP calls to the account and transaction
// ledgers.
//
// Every call is routed through a circuit breaker owned by its logical target
// and every failure, whatever its cause, is reported as an *OperationError
// that matches domain.ErrOperationFailed. The cause is kept on the error so
// operators and tests can tell a timeout from a refused debit or an open
// breaker.
package gateway
