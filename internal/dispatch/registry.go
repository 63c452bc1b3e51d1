package dispatch

import (
	"slices"

	"github.com/dstilesr/mini-chats/internal/domain"
)

type set map[string]struct{}

// registry holds the subscription relation twice: client -> topics and topic -> clients.
// A client appears in a topic's set exactly when the topic appears in the client's set,
// and a topic with no subscribers has no entry. Not safe for concurrent use; the
// dispatcher loop is its only caller.
type registry struct {
	clientTopics map[string]set
	topicClients map[string]set
}

func newRegistry() *registry {
	return &registry{
		clientTopics: make(map[string]set),
		topicClients: make(map[string]set),
	}
}

func (r *registry) hasClient(client string) bool {
	_, ok := r.clientTopics[client]
	return ok
}

func (r *registry) addClient(client string) error {
	if r.hasClient(client) {
		return domain.ErrDuplicateClient
	}
	r.clientTopics[client] = make(set)
	return nil
}

// removeClient drops client from both indexes and returns the topics that were
// deleted because client was their last subscriber. Unknown clients are a no-op.
func (r *registry) removeClient(client string) (emptied []string) {
	topics, ok := r.clientTopics[client]
	if !ok {
		return nil
	}
	delete(r.clientTopics, client)

	for topic := range topics {
		if r.detach(topic, client) {
			emptied = append(emptied, topic)
		}
	}
	return emptied
}

// subscribe returns the subscriber count of topic after client joined it.
func (r *registry) subscribe(client, topic string) (int, error) {
	topics, ok := r.clientTopics[client]
	if !ok {
		return 0, domain.ErrUnknownClient
	}

	subscribers, ok := r.topicClients[topic]
	if !ok {
		subscribers = make(set)
		r.topicClients[topic] = subscribers
	}

	topics[topic] = struct{}{}
	subscribers[client] = struct{}{}
	return len(subscribers), nil
}

// unsubscribe reports whether topic was deleted because it lost its last subscriber.
// Leaving a topic the client never joined succeeds without changes.
func (r *registry) unsubscribe(client, topic string) (bool, error) {
	topics, ok := r.clientTopics[client]
	if !ok {
		return false, domain.ErrUnknownClient
	}
	if _, joined := topics[topic]; !joined {
		return false, nil
	}

	delete(topics, topic)
	return r.detach(topic, client), nil
}

// detach removes client from topic's subscriber set, deleting the topic when empty.
func (r *registry) detach(topic, client string) bool {
	subscribers, ok := r.topicClients[topic]
	if !ok {
		return false
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(r.topicClients, topic)
		return true
	}
	return false
}

// subscribers returns the current subscribers of topic, or false if it has none.
func (r *registry) subscribers(topic string) ([]string, bool) {
	subscribers, ok := r.topicClients[topic]
	if !ok {
		return nil, false
	}
	return sortedKeys(subscribers), true
}

// topicsOf returns the topics client is subscribed to, sorted by name.
func (r *registry) topicsOf(client string) ([]string, error) {
	topics, ok := r.clientTopics[client]
	if !ok {
		return nil, domain.ErrUnknownClient
	}
	return sortedKeys(topics), nil
}

func (r *registry) counts() (clients, topics int) {
	return len(r.clientTopics), len(r.topicClients)
}

func sortedKeys(s set) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
