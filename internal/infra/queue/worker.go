package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

var ErrMalformedMessage = errors.New("malformed call routing message")

// CallPlacer is the outbound dialer the worker hands routing requests to.
type CallPlacer interface {
	PlaceCall(ctx context.Context, payload CallRoutingPayload) error
}

type consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel consumer
	Dialer  CallPlacer
}

func NewWorker(ch consumer, dialer CallPlacer) *Worker {
	return &Worker{
		Channel: ch,
		Dialer:  dialer,
	}
}

// Start consumes queueName until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"quotes-call-routing",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	log.Info().Str("queue", queueName).Msg("call routing worker started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks on success. Failures are rejected without requeue and go to the DLQ.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	if err := w.processMessage(ctx, d.Body); err != nil {
		log.Error().Err(err).Str("message_id", d.MessageId).Msg("call routing failed")
		d.Nack(false, false)
		return
	}
	d.Ack(false)
}

func (w *Worker) processMessage(ctx context.Context, body []byte) error {
	var payload CallRoutingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if payload.LeadID == "" || payload.Phone == "" {
		return fmt.Errorf("%w: lead_id and phone are required", ErrMalformedMessage)
	}

	if err := w.Dialer.PlaceCall(ctx, payload); err != nil {
		return fmt.Errorf("dialer: %w", err)
	}

	log.Info().Str("lead_id", payload.LeadID).Str("insurance_type", payload.InsuranceType).Msg("call routed")
	return nil
}

// Supervisor keeps a Worker consuming across broker restarts: whenever the
// connection or the delivery channel drops it redials after Backoff.
type Supervisor struct {
	Dialer  CallPlacer
	Backoff time.Duration

	connect func() (consumer, func() error, error)
}

func NewSupervisor(url string, dialer CallPlacer) *Supervisor {
	return &Supervisor{
		Dialer:  dialer,
		Backoff: 5 * time.Second,
		connect: func() (consumer, func() error, error) {
			mq, err := NewRabbitMQ(url)
			if err != nil {
				return nil, nil, err
			}
			return mq.Ch, mq.Close, nil
		},
	}
}

// Run blocks until ctx is done.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		ch, closeConn, err := s.connect()
		if err == nil {
			err = NewWorker(ch, s.Dialer).Start(ctx, QueueName)
			closeConn()
		}
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Dur("retry_in", s.Backoff).Msg("call routing worker disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Backoff):
		}
	}
}
