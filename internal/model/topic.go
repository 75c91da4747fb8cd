package model

import "strings"

// TopicSeparator joins a service id and a location id into a topic key.
const TopicSeparator = "_"

// Topic identifies one watchable (service, location) pair. The same string is
// used as the push channel key and as the topic document id in the store.
type Topic string

// NewTopic builds the topic key for a service/location pair.
func NewTopic(serviceID, locationID string) Topic {
	return Topic(serviceID + TopicSeparator + locationID)
}

// ServiceID returns the service half of the topic key.
func (t Topic) ServiceID() string {
	serviceID, _ := t.Split()
	return serviceID
}

// Split breaks the topic key back into its service and location ids.
func (t Topic) Split() (serviceID, locationID string) {
	parts := strings.SplitN(string(t), TopicSeparator, 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func (t Topic) String() string {
	return string(t)
}
