package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlinks/internal/messaging"
	"go.uber.org/zap"
)

// AddConsumers registers the visit recorder and the audit log on group.
func AddConsumers(
	group *messaging.ConsumerGroup,
	subscriber message.Subscriber,
	recorder *Recorder,
	audit *AuditLog,
	logger *zap.Logger,
) {
	group.Add(messaging.NewConsumer(subscriber, TopicLinkVisited, recorder.HandleVisit, logger))
	group.Add(messaging.NewConsumer(subscriber, TopicLinkCreated, audit.HandleCreated, logger))
}
