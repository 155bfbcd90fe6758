package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

type amqpSubscription struct {
	ch     *amqp.Channel
	cancel context.CancelFunc
	done   chan struct{}
}

// AMQPChangeFeed carries change events over a RabbitMQ topic exchange.
// Events are routed as "<kind>.<insert|update|delete>"; every subscription
// gets its own exclusive queue bound to "<kind>.*".
type AMQPChangeFeed struct {
	conn     *amqp.Connection
	exchange string
	log      log.FieldLogger

	pubMu sync.Mutex
	pubCh *amqp.Channel

	mu   sync.Mutex
	subs map[store.Handle]*amqpSubscription
}

func NewAMQPChangeFeed(url, exchange string, logger log.FieldLogger) (*AMQPChangeFeed, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error creating channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error declaring exchange %s: %w", exchange, err)
	}

	return &AMQPChangeFeed{
		conn:     conn,
		exchange: exchange,
		log:      logger.WithField("component", "amqp-feed"),
		pubCh:    ch,
		subs:     make(map[store.Handle]*amqpSubscription),
	}, nil
}

func (f *AMQPChangeFeed) Publish(ctx context.Context, ev store.ChangeEvent) error {
	data, err := encodeChange(ev)
	if err != nil {
		return err
	}

	f.pubMu.Lock()
	defer f.pubMu.Unlock()

	if f.conn.IsClosed() {
		return errors.New("connection is closed")
	}

	err = f.pubCh.PublishWithContext(ctx,
		f.exchange,
		RoutingKey(ev.Kind, ev.Type),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   uuid.NewString(),
			Body:        data,
		},
	)
	if err != nil {
		return fmt.Errorf("error in publishing change %w", err)
	}
	return nil
}

func (f *AMQPChangeFeed) Subscribe(ctx context.Context, kind models.EntityKind, filters []store.Filter, onChange func(store.ChangeEvent)) (store.Handle, error) {
	if onChange == nil {
		return "", fmt.Errorf("subscribe %s: nil handler", kind)
	}
	if f.conn.IsClosed() {
		return "", errors.New("connection is closed")
	}

	ch, err := f.conn.Channel()
	if err != nil {
		return "", fmt.Errorf("error creating channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return "", fmt.Errorf("error declaring queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, string(kind)+".*", f.exchange, false, nil); err != nil {
		ch.Close()
		return "", fmt.Errorf("error binding queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return "", fmt.Errorf("error starting consumer: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &amqpSubscription{ch: ch, cancel: cancel, done: make(chan struct{})}
	h := store.Handle(uuid.NewString())

	f.mu.Lock()
	f.subs[h] = sub
	f.mu.Unlock()

	go f.consume(subCtx, sub, msgs, kind, filters, onChange)
	return h, nil
}

func (f *AMQPChangeFeed) consume(ctx context.Context, sub *amqpSubscription, msgs <-chan amqp.Delivery, kind models.EntityKind, filters []store.Filter, onChange func(store.ChangeEvent)) {
	defer close(sub.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return // Channel closed
			}
			ev, err := decodeChange(msg.Body, kind)
			if err != nil {
				f.log.WithError(err).WithField("routing_key", msg.RoutingKey).Warn("Dropping change message")
				continue
			}
			if wants(ev, filters) {
				onChange(ev)
			}
		}
	}
}

func (f *AMQPChangeFeed) Unsubscribe(h store.Handle) error {
	f.mu.Lock()
	sub, ok := f.subs[h]
	delete(f.subs, h)
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown subscription %s", h)
	}

	sub.cancel()
	err := sub.ch.Close()
	<-sub.done
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

// Close ends every subscription and the connection.
func (f *AMQPChangeFeed) Close() error {
	f.mu.Lock()
	handles := make([]store.Handle, 0, len(f.subs))
	for h := range f.subs {
		handles = append(handles, h)
	}
	f.mu.Unlock()

	for _, h := range handles {
		if err := f.Unsubscribe(h); err != nil {
			f.log.WithError(err).Warn("Failed to close subscription")
		}
	}
	if f.conn != nil && !f.conn.IsClosed() {
		return f.conn.Close()
	}
	return nil
}
