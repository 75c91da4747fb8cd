package model

import "time"

// Subscription binds one device token to one topic. Records live in the
// "subscriptions" collection and are owned by the subscription repository.
type Subscription struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Topic     Topic     `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
}

// TopicCounters is the denormalized per-topic document: the number of live
// subscriptions and the running count of successful deliveries.
type TopicCounters struct {
	Active    int64 `json:"active" firestore:"active"`
	Delivered int64 `json:"delivered" firestore:"delivered"`
}

// CounterDelta is one topic's counter adjustment inside a reconciliation
// batch. Active is negative when subscriptions were removed.
type CounterDelta struct {
	Active    int64
	Delivered int64
}
