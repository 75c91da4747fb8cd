package model

// DeliveryOutcome classifies one token's result within a multicast send.
type DeliveryOutcome string

const (
	// OutcomeDelivered means the push provider accepted the message for the token.
	OutcomeDelivered DeliveryOutcome = "delivered"
	// OutcomeInvalidToken means the provider rejected the token as malformed.
	OutcomeInvalidToken DeliveryOutcome = "invalid_token"
	// OutcomeNotRegistered means the token is no longer registered with the provider.
	OutcomeNotRegistered DeliveryOutcome = "not_registered"
	// OutcomeOtherError covers transient conditions, rate limiting included.
	OutcomeOtherError DeliveryOutcome = "other_error"
)

// Permanent reports whether the outcome means the device can never be
// reached again through this token.
func (o DeliveryOutcome) Permanent() bool {
	return o == OutcomeInvalidToken || o == OutcomeNotRegistered
}
