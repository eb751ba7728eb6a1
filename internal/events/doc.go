// Package events carries the service's messages to and from the event channel.
//
// Outbound, the payment saga publishes orchestrator events and the balance
// trigger publishes card balances. Inbound, the service consumes orchestrator
// results and balance triggers.
//
// The primary components are:
// - Event: the envelope written to and read from a topic
// - EventEmitter: publishes an event (RedisStreamPublisher, InMemoryEventEmitter)
// - EventHandler: processes an event (Router, the inbound handlers)
// - RedisStreamConsumer: reads topics through a consumer group and dispatches
// - AsyncPublisher: fire-and-forget wrapper around an emitter
package events
