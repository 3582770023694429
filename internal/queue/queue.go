// Package queue holds the transport-neutral view of inbound records shared by
// the processor and the queue drivers.
package queue

// Message is one inbound record as delivered by a queue driver.
type Message struct {
	// ID identifies the message within its delivery: Kafka
	// "topic/partition/offset", SQS message id, or a replay line number.
	ID   string
	Body []byte
}
