package events

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/redis/go-redis/v9"
)

// NewMemoryBus is an in-process bus for single instance deployments.
func NewMemoryBus(l logging.Logger) (message.Publisher, message.Subscriber) {
	ch := gochannel.NewGoChannel(gochannel.Config{}, NewLoggerAdapter(l))
	return ch, ch
}

// NewRedisBus shares events over redis streams. The subscriber has no
// consumer group, so every instance reads every event.
func NewRedisBus(client *redis.Client, l logging.Logger) (message.Publisher, message.Subscriber, error) {
	logger := NewLoggerAdapter(l)

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, logger)
	if err != nil {
		return nil, nil, err
	}

	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{Client: client}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}
	return pub, sub, nil
}
