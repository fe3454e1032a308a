package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ErrReject signals that an inbound message is malformed and must be dropped
// without requeue and without a reply. Handlers wrap it for any payload that
// cannot become valid by retrying.
var ErrReject = errors.New("reject message")

// HandlerFunc processes a raw message payload and returns the reply body.
// Returning an error wrapping ErrReject drops the message; any other error is
// a backend failure and also rejects without requeue, so the caller observes
// a timeout rather than an error envelope. Domain outcomes (lookup miss,
// insufficient balance) belong in the reply object, not in the error.
type HandlerFunc func(ctx context.Context, payload []byte) (reply any, err error)

// Binding ties a named queue to its handler. FireAndForget bindings never
// publish a reply; the message is only acked or rejected.
type Binding struct {
	Queue         string
	Handler       HandlerFunc
	FireAndForget bool
}

// replyPublisher is the slice of amqp.Channel the dispatcher needs to publish
// replies. Narrowed to an interface so message handling is testable without a
// broker.
type replyPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RPCServer is a request/reply consumer over RabbitMQ. Each binding gets its
// own channel with prefetch 1, so messages on one queue are processed one at
// a time while queues run in parallel.
type RPCServer struct {
	conn     *amqp.Connection
	logger   *logrus.Logger
	bindings []Binding
}

func NewRPCServer(conn *amqp.Connection, logger *logrus.Logger) *RPCServer {
	return &RPCServer{conn: conn, logger: logger}
}

func (s *RPCServer) Bind(b Binding) {
	s.bindings = append(s.bindings, b)
}

// Start declares every bound queue and launches one consumer goroutine per
// binding. It returns once all consumers are running; they stop when ctx is
// cancelled.
func (s *RPCServer) Start(ctx context.Context) error {
	for _, b := range s.bindings {
		ch, err := s.conn.Channel()
		if err != nil {
			return err
		}
		if err := ch.Qos(1, 0, false); err != nil {
			_ = ch.Close()
			return err
		}
		if _, err := ch.QueueDeclare(b.Queue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return err
		}
		msgs, err := ch.Consume(b.Queue, "", false, false, false, false, nil)
		if err != nil {
			_ = ch.Close()
			return err
		}
		s.logger.WithField("queue", b.Queue).Info("rpc consumer started")
		go s.consume(ctx, ch, b, msgs)
	}
	return nil
}

func (s *RPCServer) consume(ctx context.Context, ch *amqp.Channel, b Binding, msgs <-chan amqp.Delivery) {
	defer func() { _ = ch.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				s.logger.WithField("queue", b.Queue).Warn("delivery channel closed")
				return
			}
			s.handleDelivery(ctx, ch, b, &d)
		}
	}
}

// handleDelivery drives one message through the per-message state machine:
// received → handled → replied → acked, or received → reject-no-requeue.
func (s *RPCServer) handleDelivery(ctx context.Context, pub replyPublisher, b Binding, d *amqp.Delivery) {
	log := s.logger.WithFields(logrus.Fields{
		"queue":          b.Queue,
		"correlation_id": d.CorrelationId,
	})

	reply, err := b.Handler(ctx, d.Body)
	if err != nil {
		if errors.Is(err, ErrReject) {
			log.WithError(err).Warn("malformed message dropped")
		} else {
			log.WithError(err).Error("handler failed, message dropped")
		}
		_ = d.Nack(false, false)
		return
	}

	if b.FireAndForget || reply == nil {
		_ = d.Ack(false)
		return
	}

	if d.ReplyTo == "" {
		log.Warn("message without reply destination dropped")
		_ = d.Nack(false, false)
		return
	}

	body, err := json.Marshal(reply)
	if err != nil {
		log.WithError(err).Error("reply encode failed, message dropped")
		_ = d.Nack(false, false)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = pub.PublishWithContext(pubCtx,
		"",        // default exchange
		d.ReplyTo, // routing key = caller's reply queue
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: d.CorrelationId,
			Timestamp:     time.Now().UTC(),
			Body:          body,
		},
	)
	if err != nil {
		// At-most-once: the caller will time out instead of seeing an error
		// envelope.
		log.WithError(err).Error("reply publish failed, message dropped")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
