package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mireiacv/citalert/internal/model"
)

func TestChunkTopicsWithinLimit(t *testing.T) {
	topics := []model.Topic{"1_1", "2_2", "3_3"}

	chunks := chunkTopics(topics, topicQueryChunkSize)

	require.Len(t, chunks, 1)
	assert.Equal(t, topics, chunks[0])
}

func TestChunkTopicsBeyondLimitKeepsEveryTopic(t *testing.T) {
	var topics []model.Topic
	for i := 0; i < topicQueryChunkSize*2+5; i++ {
		topics = append(topics, model.NewTopic(fmt.Sprint(i), "1"))
	}

	chunks := chunkTopics(topics, topicQueryChunkSize)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], topicQueryChunkSize)
	assert.Len(t, chunks[1], topicQueryChunkSize)
	assert.Len(t, chunks[2], 5)

	var merged []model.Topic
	for _, chunk := range chunks {
		merged = append(merged, chunk...)
	}
	assert.Equal(t, topics, merged, "no topic may be dropped across chunks")
}

func TestChunkTopicsEmpty(t *testing.T) {
	assert.Empty(t, chunkTopics(nil, topicQueryChunkSize))
}

func TestTopicStrings(t *testing.T) {
	assert.Equal(t, []string{"5_12", "7_3"}, topicStrings([]model.Topic{"5_12", "7_3"}))
}
