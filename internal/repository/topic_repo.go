package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mireiacv/citalert/internal/model"
)

// TopicRepository reads the denormalized topic counters.
type TopicRepository struct {
	db *firestore.Client
}

func NewTopicRepository(db *firestore.Client) *TopicRepository {
	return &TopicRepository{db: db}
}

// ActiveTopics returns every topic with at least one live subscriber. The
// read is a snapshot taken before the tick writes anything, so topics about
// to be pruned in the same tick can still show up here.
func (r *TopicRepository) ActiveTopics(ctx context.Context) ([]model.Topic, error) {
	iter := r.db.Collection(topicsCollection).
		Where("active", ">", 0).
		Documents(ctx)

	docs, err := iter.GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing active topics: %w", err)
	}

	topics := make([]model.Topic, 0, len(docs))
	for _, doc := range docs {
		topics = append(topics, model.Topic(doc.Ref.ID))
	}
	return topics, nil
}

// Counters returns one topic's counter document, zero-valued when the topic
// was never subscribed to.
func (r *TopicRepository) Counters(ctx context.Context, topic model.Topic) (model.TopicCounters, error) {
	doc, err := r.db.Collection(topicsCollection).Doc(topic.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.TopicCounters{}, nil
		}
		return model.TopicCounters{}, fmt.Errorf("loading topic %s: %w", topic, err)
	}

	var counters model.TopicCounters
	if err := doc.DataTo(&counters); err != nil {
		return model.TopicCounters{}, fmt.Errorf("decoding topic %s: %w", topic, err)
	}
	return counters, nil
}
