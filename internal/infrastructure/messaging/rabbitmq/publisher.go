package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	pkgctx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

const (
	DefaultExchange = "city.events"

	// Routing key understood by the email service.
	RoutingVerifyEmail = "auth.email.verify.requested"

	headerRequestID = "x-request-id"

	defaultPublishTimeout = 2 * time.Second
)

// channel is the slice of *amqp.Channel the publish path needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements auth.Notifier on a topic exchange with publisher
// confirms and mandatory routing, so a message nobody is bound to receive
// is reported as a failure instead of vanishing.
type Publisher struct {
	url      string
	exchange string
	timeout  time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel

	confirms <-chan amqp.Confirmation
	returns  <-chan amqp.Return
	closed   <-chan *amqp.Error

	dial func() error
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange, timeout: defaultPublishTimeout}
	p.dial = p.connect
	if err := p.dial(); err != nil {
		return nil, err
	}
	return p, nil
}

// WithTimeout bounds publishes whose context carries no deadline.
func (p *Publisher) WithTimeout(d time.Duration) *Publisher {
	if d > 0 {
		p.timeout = d
	}
	return p
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func (p *Publisher) PublishVerifyEmail(ctx context.Context, evt auth.VerifyEmailEvent) error {
	body, err := encodeVerifyEmail(evt)
	if err != nil {
		return err
	}
	if err := p.publish(ctx, RoutingVerifyEmail, body); err != nil {
		return err
	}
	logger.WithCtx(ctx).Debug().
		Str("routing_key", RoutingVerifyEmail).
		Str("user_id", evt.UserID).
		Msg("verify_email_published")
	return nil
}

func encodeVerifyEmail(evt auth.VerifyEmailEvent) ([]byte, error) {
	if evt.UserID == "" || evt.Email == "" || evt.URL == "" {
		return nil, fmt.Errorf("verify email event: user_id, email and url are required")
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return body, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	fail := func(step string, err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq %s: %w", step, err)
	}
	// durable topic exchange; declaring is idempotent
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fail("exchange declare", err)
	}
	if err := ch.Confirm(false); err != nil {
		return fail("confirm mode", err)
	}

	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returns = ch.NotifyReturn(make(chan amqp.Return, 1))
	p.closed = ch.NotifyClose(make(chan *amqp.Error, 1))
	p.conn = conn
	p.ch = ch
	return nil
}

// connected reports false once the broker has closed the channel, even
// when the connection itself is still up.
func (p *Publisher) connected() bool {
	if p.ch == nil {
		return false
	}
	select {
	case <-p.closed:
		return false
	default:
	}
	return p.conn == nil || !p.conn.IsClosed()
}

func (p *Publisher) publish(ctx context.Context, routingKey string, body []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		d := p.timeout
		if d <= 0 {
			d = defaultPublishTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected() || drain(p.confirms, p.returns) != nil {
		p.reset()
		if err := p.dial(); err != nil {
			return err
		}
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if rid := pkgctx.GetRequestID(ctx); rid != "" {
		msg.Headers = amqp.Table{headerRequestID: rid}
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, true, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq publish: key=%s: %w", routingKey, err)
	}

	err := awaitConfirm(ctx, routingKey, p.confirms, p.returns)
	if err == errChannelClosed {
		p.reset()
	}
	return err
}

var errChannelClosed = fmt.Errorf("rabbitmq channel closed")

// drain drops confirms/returns left over from an earlier publish that gave
// up on its context. A closed notification channel means the AMQP channel
// is gone and yields errChannelClosed.
func drain(confirms <-chan amqp.Confirmation, returns <-chan amqp.Return) error {
	for {
		select {
		case _, ok := <-confirms:
			if !ok {
				return errChannelClosed
			}
		case _, ok := <-returns:
			if !ok {
				return errChannelClosed
			}
		default:
			return nil
		}
	}
}

// awaitConfirm waits for the broker's verdict on a single mandatory publish.
// The broker sends basic.return before basic.ack for unroutable messages and
// both come off the same reader goroutine, so a return seen alongside the
// ack still wins.
func awaitConfirm(ctx context.Context, key string, confirms <-chan amqp.Confirmation, returns <-chan amqp.Return) error {
	unroutable := func(ret amqp.Return) error {
		return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", key, ret.ReplyCode, ret.ReplyText)
	}

	select {
	case ret := <-returns:
		return unroutable(ret)

	case conf, ok := <-confirms:
		if !ok {
			return errChannelClosed
		}
		select {
		case ret := <-returns:
			return unroutable(ret)
		default:
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", key, conf.DeliveryTag)
		}
		return nil

	case <-ctx.Done():
		return fmt.Errorf("rabbitmq publish: key=%s: %w", key, ctx.Err())
	}
}

func (p *Publisher) reset() {
	p.confirms, p.returns, p.closed = nil, nil, nil
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
