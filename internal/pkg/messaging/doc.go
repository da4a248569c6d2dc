// Package messaging publishes and consumes domain events over NSQ, NATS,
// Kafka, Google Pub/Sub or an in-process broker behind one interface.
//
// Headers travel natively on NATS, Kafka and Pub/Sub (as attributes). NSQ has
// no header support, so the NSQ driver frames body and headers in a small
// JSON envelope.
package messaging
