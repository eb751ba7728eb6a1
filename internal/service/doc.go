// Package service contains the card account use cases. It orchestrates the
// card store (defined in internal/store), the remote ledgers and the event
// channel to fulfill application features.
//
// Key components:
//
// 1. CardService:
//   - Issues cards with generated, Luhn-valid numbers and retries collisions
//   - Lists, replaces and deletes cards
//   - Associates accounts under the store's per-card lock
//   - Reads the main account balance and the card's ledger entries
//   - Publishes balance events on request
//
// 2. PaymentService:
//   - Probes the associated accounts in order and debits the first one
//     whose balance covers the amount
//   - Records each step in a payment saga; the debit is the commit point
//   - Hands registration and publication to the task queue
//
// 3. Error Handling:
//   - Every returned error is a CardServiceError wrapping exactly one domain
//     error kind, so the API layer can map it with errors.Is
//
// The service layer depends on domain entities and store interfaces, never
// on a specific storage or transport implementation.
package service
