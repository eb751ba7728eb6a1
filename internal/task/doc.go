// Package task runs the work that follows a committed payment.
//
// Once the account ledger accepts a debit the caller is answered, and the
// remaining steps (registering the transaction and publishing the
// orchestrator event) run as a PostCommitTask on a worker pool. The
// SagaSweeper finds payment sagas that stopped short of their final state,
// either requeueing them or flagging them for manual reconciliation, so
// that work survives restarts and a full queue.
package task
