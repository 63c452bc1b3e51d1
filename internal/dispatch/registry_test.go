package dispatch

import (
	"testing"

	"github.com/dstilesr/mini-chats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireConsistent checks that both indexes mirror each other and that no empty topic is kept.
func requireConsistent(t *testing.T, r *registry) {
	t.Helper()

	for client, topics := range r.clientTopics {
		for topic := range topics {
			subscribers, ok := r.topicClients[topic]
			require.True(t, ok, "topic %q of client %q missing from topic index", topic, client)
			_, ok = subscribers[client]
			require.True(t, ok, "client %q missing from subscribers of %q", client, topic)
		}
	}
	for topic, subscribers := range r.topicClients {
		require.NotEmpty(t, subscribers, "topic %q kept with no subscribers", topic)
		for client := range subscribers {
			topics, ok := r.clientTopics[client]
			require.True(t, ok, "subscriber %q of %q is not registered", client, topic)
			_, ok = topics[topic]
			require.True(t, ok, "topic %q missing from topics of %q", topic, client)
		}
	}
}

func TestRegistry_AddClient(t *testing.T) {
	r := newRegistry()

	require.NoError(t, r.addClient("alice"))
	assert.True(t, r.hasClient("alice"))

	err := r.addClient("alice")
	assert.ErrorIs(t, err, domain.ErrDuplicateClient)

	clients, topics := r.counts()
	assert.Equal(t, 1, clients)
	assert.Equal(t, 0, topics)
}

func TestRegistry_SubscribeIsIdempotent(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.addClient("alice"))
	require.NoError(t, r.addClient("bob"))

	first, err := r.subscribe("alice", "room1")
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	again, err := r.subscribe("alice", "room1")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	total, err := r.subscribe("bob", "room1")
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	requireConsistent(t, r)
}

func TestRegistry_SubscribeUnknownClient(t *testing.T) {
	r := newRegistry()

	_, err := r.subscribe("ghost", "room1")
	assert.ErrorIs(t, err, domain.ErrUnknownClient)
	assert.Empty(t, r.topicClients, "failed subscribe must not create the topic")
}

func TestRegistry_Unsubscribe(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.addClient("alice"))
	require.NoError(t, r.addClient("bob"))
	_, _ = r.subscribe("alice", "room1")
	_, _ = r.subscribe("bob", "room1")

	emptied, err := r.unsubscribe("alice", "room1")
	require.NoError(t, err)
	assert.False(t, emptied)
	requireConsistent(t, r)

	emptied, err = r.unsubscribe("bob", "room1")
	require.NoError(t, err)
	assert.True(t, emptied)
	assert.NotContains(t, r.topicClients, "room1")
	requireConsistent(t, r)
}

func TestRegistry_UnsubscribeTwiceMatchesOnce(t *testing.T) {
	once := newRegistry()
	twice := newRegistry()
	for _, r := range []*registry{once, twice} {
		require.NoError(t, r.addClient("alice"))
		_, _ = r.subscribe("alice", "room1")
		_, _ = r.subscribe("alice", "room2")
	}

	_, err := once.unsubscribe("alice", "room1")
	require.NoError(t, err)

	_, err = twice.unsubscribe("alice", "room1")
	require.NoError(t, err)
	emptied, err := twice.unsubscribe("alice", "room1")
	require.NoError(t, err)
	assert.False(t, emptied)

	assert.Equal(t, once.clientTopics, twice.clientTopics)
	assert.Equal(t, once.topicClients, twice.topicClients)
}

func TestRegistry_UnsubscribeNeverJoined(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.addClient("alice"))
	require.NoError(t, r.addClient("bob"))
	_, _ = r.subscribe("bob", "room1")

	emptied, err := r.unsubscribe("alice", "room1")
	require.NoError(t, err)
	assert.False(t, emptied)

	subscribers, ok := r.subscribers("room1")
	require.True(t, ok)
	assert.Equal(t, []string{"bob"}, subscribers)
}

func TestRegistry_UnsubscribeUnknownClient(t *testing.T) {
	r := newRegistry()

	_, err := r.unsubscribe("ghost", "room1")
	assert.ErrorIs(t, err, domain.ErrUnknownClient)
}

func TestRegistry_RemoveClient(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.addClient("alice"))
	require.NoError(t, r.addClient("bob"))
	_, _ = r.subscribe("alice", "solo")
	_, _ = r.subscribe("alice", "shared")
	_, _ = r.subscribe("bob", "shared")

	emptied := r.removeClient("alice")
	assert.Equal(t, []string{"solo"}, emptied)
	assert.False(t, r.hasClient("alice"))
	requireConsistent(t, r)

	assert.Nil(t, r.removeClient("alice"), "second removal is a no-op")
	for topic, subscribers := range r.topicClients {
		assert.NotContains(t, subscribers, "alice", "alice still in %q", topic)
	}
	requireConsistent(t, r)
}

func TestRegistry_TopicsOfSorted(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.addClient("alice"))
	for _, topic := range []string{"zeta", "alpha", "mid"} {
		_, _ = r.subscribe("alice", topic)
	}

	topics, err := r.topicsOf("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, topics)

	_, err = r.topicsOf("ghost")
	assert.ErrorIs(t, err, domain.ErrUnknownClient)
}

func TestRegistry_RandomOperationsStayConsistent(t *testing.T) {
	r := newRegistry()
	clients := []string{"a", "b", "c", "d"}
	topics := []string{"t1", "t2", "t3"}

	// Deterministic walk over every operation kind.
	for i := 0; i < 400; i++ {
		client := clients[i%len(clients)]
		topic := topics[(i/len(clients))%len(topics)]
		switch (i * 7) % 5 {
		case 0:
			_ = r.addClient(client)
		case 1, 2:
			_, _ = r.subscribe(client, topic)
		case 3:
			_, _ = r.unsubscribe(client, topic)
		case 4:
			r.removeClient(client)
		}
		requireConsistent(t, r)
	}
}
