package model

// ========== Subscription DTOs ==========

type SubscribeRequest struct {
	Token string `json:"token" binding:"required"`
	Topic string `json:"topic" binding:"required"`
}

type SubscribeResponse struct {
	ID string `json:"id"`
}

// SubscriptionsResponse maps each subscribed topic to its subscription id,
// which the client needs for unsubscribing.
type SubscriptionsResponse struct {
	Subscriptions map[Topic]string `json:"subscriptions"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
