package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-quotes/internal/entity"
	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

// CallRoutingPayload asks the dialer to put an agent on the phone with the lead.
type CallRoutingPayload struct {
	LeadID        string    `json:"lead_id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	InsuranceType string    `json:"insurance_type"`
	ZipCode       string    `json:"zip_code,omitempty"`
	Source        string    `json:"source,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}

func NewCallRoutingPayload(lead *entity.Lead, now time.Time) CallRoutingPayload {
	p := CallRoutingPayload{
		LeadID:        lead.ID,
		Name:          lead.FullName(),
		Phone:         lead.Phone,
		Email:         lead.Email,
		InsuranceType: string(lead.InsuranceType),
		ZipCode:       lead.Details.ZipCode,
		RequestedAt:   now.UTC(),
	}
	if lead.Attribution.Source != nil {
		p.Source = *lead.Attribution.Source
	}
	return p
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQProducer is the call routing channel. It connects on first use and
// redials on the next call after a failed publish, also when it started on a
// connection shared with the rest of the process.
type RabbitMQProducer struct {
	url  string
	dial func(url string) (*RabbitMQ, error)

	mu    sync.Mutex
	mq    *RabbitMQ
	pub   publisher
	owned bool
}

func NewProducer(url string) *RabbitMQProducer {
	return &RabbitMQProducer{url: url, dial: NewRabbitMQ}
}

// NewProducerFromConnection publishes on an already open connection. The
// connection stays owned by the caller; after a failure the producer dials url
// on its own.
func NewProducerFromConnection(url string, mq *RabbitMQ) *RabbitMQProducer {
	return &RabbitMQProducer{url: url, dial: NewRabbitMQ, mq: mq, pub: mq.Ch}
}

func (p *RabbitMQProducer) IsConfigured() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url != "" || p.pub != nil
}

// IsClosed reports whether there is no live broker connection right now.
func (p *RabbitMQProducer) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mq == nil || p.mq.Conn == nil {
		return true
	}
	return p.mq.Conn.IsClosed()
}

func (p *RabbitMQProducer) Route(ctx context.Context, lead *entity.Lead) error {
	return p.PublishCallRouting(ctx, NewCallRoutingPayload(lead, time.Now()))
}

func (p *RabbitMQProducer) PublishCallRouting(ctx context.Context, payload CallRoutingPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode call routing payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return err
	}

	err = p.pub.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    payload.LeadID,
			Timestamp:    payload.RequestedAt,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		p.reset()
		return fmt.Errorf("publish call routing: %w", err)
	}
	return nil
}

func (p *RabbitMQProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.owned && p.mq != nil {
		err = p.mq.Close()
	}
	p.mq, p.pub, p.owned = nil, nil, false
	return err
}

func (p *RabbitMQProducer) connect() error {
	if p.pub != nil {
		return nil
	}
	if p.url == "" {
		return &usecase.ConfigurationError{Service: "call routing", Missing: []string{"RABBITMQ_URL"}}
	}
	dial := p.dial
	if dial == nil {
		dial = NewRabbitMQ
	}
	mq, err := dial(p.url)
	if err != nil {
		return err
	}
	p.mq, p.pub, p.owned = mq, mq.Ch, true
	return nil
}

// reset drops the connection that failed so the next publish redials. A shared
// connection is left open for its owner.
func (p *RabbitMQProducer) reset() {
	if p.owned && p.mq != nil {
		p.mq.Close()
	}
	p.mq, p.pub, p.owned = nil, nil, false
}
