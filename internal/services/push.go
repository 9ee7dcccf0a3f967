package services

import (
	"context"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/parolevive/backend/internal/config"
	"github.com/parolevive/backend/pkg/logger"
	"google.golang.org/api/option"
)

// MessageSender is the slice of the FCM client the push service uses.
// Keeping it an interface lets tests record messages instead of calling
// Firebase.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

// Broadcast is one queued notification destined for the broadcast topic.
type Broadcast struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushService fans notifications out to the fixed broadcast topic on a
// background queue. Send failures are logged and never surface to the
// request that enqueued them.
type PushService struct {
	sender MessageSender
	topic  string
	queue  chan Broadcast
	done   chan struct{}
}

// NewFCMClient builds the real messaging client from a service-account
// credentials file. Returns nil when no file is configured so the push
// service degrades to log-only.
func NewFCMClient(ctx context.Context, cfg config.FCMConfig) (MessageSender, error) {
	if cfg.CredentialsFile == "" {
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, err
	}
	return app.Messaging(ctx)
}

func NewPushService(sender MessageSender, topic string) *PushService {
	s := &PushService{
		sender: sender,
		topic:  topic,
		queue:  make(chan Broadcast, 256),
		done:   make(chan struct{}),
	}
	go s.processQueue()
	return s
}

// BroadcastAsync enqueues a notification for every subscriber of the
// broadcast topic. Drops (and logs) when the queue is full.
func (s *PushService) BroadcastAsync(b Broadcast) {
	select {
	case s.queue <- b:
	default:
		logger.Warn("push_queue_full", map[string]interface{}{
			"title":   b.Title,
			"dropped": true,
		})
	}
}

// SubscribeToken registers a device token on the broadcast topic.
func (s *PushService) SubscribeToken(ctx context.Context, token string) error {
	if s.sender == nil {
		logger.Warn("push_subscribe_skipped", map[string]interface{}{
			"reason": "no sender configured",
		})
		return nil
	}
	_, err := s.sender.SubscribeToTopic(ctx, []string{token}, s.topic)
	if err != nil {
		logger.Error("push_subscribe_failed", err, map[string]interface{}{
			"topic": s.topic,
		})
	}
	return err
}

// Close drains the queue and stops the worker. Used by tests; the
// server never closes it.
func (s *PushService) Close() {
	close(s.queue)
	<-s.done
}

func (s *PushService) processQueue() {
	defer close(s.done)
	for b := range s.queue {
		s.deliver(b)
	}
}

func (s *PushService) deliver(b Broadcast) {
	if s.sender == nil {
		logger.Info("push_broadcast_skipped", map[string]interface{}{
			"title":  b.Title,
			"reason": "no sender configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message := &messaging.Message{
		Topic: s.topic,
		Notification: &messaging.Notification{
			Title: b.Title,
			Body:  b.Body,
		},
		Data: b.Data,
	}

	id, err := s.sender.Send(ctx, message)
	if err != nil {
		logger.Error("push_broadcast_failed", err, map[string]interface{}{
			"topic": s.topic,
			"title": b.Title,
		})
		return
	}

	logger.Info("push_broadcast_sent", map[string]interface{}{
		"topic":      s.topic,
		"title":      b.Title,
		"message_id": id,
	})
}
