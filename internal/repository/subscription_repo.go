package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mireiacv/citalert/internal/model"
)

const (
	subscriptionsCollection = "subscriptions"
	topicsCollection        = "topics"

	// Firestore caps "in" filters at 30 elements per query, so topic sets
	// larger than that are fetched in chunks and merged.
	topicQueryChunkSize = 30
)

// subscriptionDoc is the stored shape of a subscription record.
type subscriptionDoc struct {
	Token string    `firestore:"token"`
	Topic string    `firestore:"topic"`
	Time  time.Time `firestore:"time,serverTimestamp"`
}

// SubscriptionRepository owns the subscription records and the denormalized
// per-topic counters. Every write that touches both goes through a single
// Firestore batch so the pair commits or fails together.
type SubscriptionRepository struct {
	db *firestore.Client
}

func NewSubscriptionRepository(db *firestore.Client) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Subscribe creates a subscription for the (token, topic) pair and bumps the
// topic's active counter in the same batch. Subscribing twice without an
// unsubscribe in between returns the existing record's id instead of
// creating a duplicate.
func (r *SubscriptionRepository) Subscribe(ctx context.Context, token string, topic model.Topic) (string, error) {
	if token == "" || topic == "" {
		return "", fmt.Errorf("token and topic are required: %w", model.ErrInvalidArgument)
	}

	existing := r.db.Collection(subscriptionsCollection).
		Where("token", "==", token).
		Where("topic", "==", topic.String()).
		Limit(1).
		Documents(ctx)
	defer existing.Stop()

	doc, err := existing.Next()
	if err == nil {
		return doc.Ref.ID, nil
	}
	if err != iterator.Done {
		return "", fmt.Errorf("checking existing subscription: %w", err)
	}

	ref := r.db.Collection(subscriptionsCollection).NewDoc()
	batch := r.db.Batch()
	batch.Create(ref, subscriptionDoc{Token: token, Topic: topic.String()})
	batch.Set(r.topicRef(topic), map[string]interface{}{
		"active": firestore.Increment(1),
	}, firestore.MergeAll)

	if _, err := batch.Commit(ctx); err != nil {
		return "", fmt.Errorf("committing subscribe batch: %w", err)
	}
	return ref.ID, nil
}

// Unsubscribe deletes the subscription and decrements the topic's active
// counter atomically.
func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, topic model.Topic, subscriptionID string) error {
	if topic == "" || subscriptionID == "" {
		return fmt.Errorf("topic and subscription id are required: %w", model.ErrNotFound)
	}

	ref := r.db.Collection(subscriptionsCollection).Doc(subscriptionID)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("subscription %s: %w", subscriptionID, model.ErrNotFound)
		}
		return fmt.Errorf("loading subscription %s: %w", subscriptionID, err)
	}

	batch := r.db.Batch()
	batch.Delete(ref)
	batch.Update(r.topicRef(topic), []firestore.Update{
		{Path: "active", Value: firestore.Increment(-1)},
	})

	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("committing unsubscribe batch: %w", err)
	}
	return nil
}

// SubscriptionsForTopics returns every subscription watching one of the given
// topics, grouped by service id. The topic set is chunked to stay within the
// store's per-query "in" limit; no topic is dropped.
func (r *SubscriptionRepository) SubscriptionsForTopics(ctx context.Context, topics []model.Topic) (map[string][]model.Subscription, error) {
	grouped := make(map[string][]model.Subscription)

	for _, chunk := range chunkTopics(topics, topicQueryChunkSize) {
		iter := r.db.Collection(subscriptionsCollection).
			Where("topic", "in", topicStrings(chunk)).
			Documents(ctx)

		docs, err := iter.GetAll()
		if err != nil {
			return nil, fmt.Errorf("listing subscriptions for topics: %w", err)
		}

		for _, doc := range docs {
			sub, err := toSubscription(doc)
			if err != nil {
				return nil, err
			}
			grouped[sub.Topic.ServiceID()] = append(grouped[sub.Topic.ServiceID()], sub)
		}
	}
	return grouped, nil
}

// SubscriptionsForToken maps every topic the device watches to its
// subscription id. Unknown tokens yield an empty map, not an error.
func (r *SubscriptionRepository) SubscriptionsForToken(ctx context.Context, token string) (map[model.Topic]string, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required: %w", model.ErrInvalidArgument)
	}

	iter := r.db.Collection(subscriptionsCollection).
		Where("token", "==", token).
		Documents(ctx)

	docs, err := iter.GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions for token: %w", err)
	}

	subs := make(map[model.Topic]string, len(docs))
	for _, doc := range docs {
		sub, err := toSubscription(doc)
		if err != nil {
			return nil, err
		}
		subs[sub.Topic] = sub.ID
	}
	return subs, nil
}

// ApplyReconciliation commits one service group's reconciliation: all
// subscription deletes plus their topics' counter adjustments in a single
// all-or-nothing batch. If the commit fails the records are untouched and the
// next tick re-derives the same decision.
func (r *SubscriptionRepository) ApplyReconciliation(ctx context.Context, removals []model.Subscription, deltas map[model.Topic]model.CounterDelta) error {
	if len(removals) == 0 && len(deltas) == 0 {
		return nil
	}

	batch := r.db.Batch()
	for _, sub := range removals {
		batch.Delete(r.db.Collection(subscriptionsCollection).Doc(sub.ID))
	}
	for topic, delta := range deltas {
		updates := make([]firestore.Update, 0, 2)
		if delta.Active != 0 {
			updates = append(updates, firestore.Update{Path: "active", Value: firestore.Increment(delta.Active)})
		}
		if delta.Delivered != 0 {
			updates = append(updates, firestore.Update{Path: "delivered", Value: firestore.Increment(delta.Delivered)})
		}
		if len(updates) > 0 {
			batch.Update(r.topicRef(topic), updates)
		}
	}

	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("committing reconciliation batch: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) topicRef(topic model.Topic) *firestore.DocumentRef {
	return r.db.Collection(topicsCollection).Doc(topic.String())
}

func toSubscription(doc *firestore.DocumentSnapshot) (model.Subscription, error) {
	var data subscriptionDoc
	if err := doc.DataTo(&data); err != nil {
		return model.Subscription{}, fmt.Errorf("decoding subscription %s: %w", doc.Ref.ID, err)
	}
	return model.Subscription{
		ID:        doc.Ref.ID,
		Token:     data.Token,
		Topic:     model.Topic(data.Topic),
		CreatedAt: data.Time,
	}, nil
}

func chunkTopics(topics []model.Topic, size int) [][]model.Topic {
	var chunks [][]model.Topic
	for len(topics) > size {
		chunks = append(chunks, topics[:size])
		topics = topics[size:]
	}
	if len(topics) > 0 {
		chunks = append(chunks, topics)
	}
	return chunks
}

func topicStrings(topics []model.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.String()
	}
	return out
}
