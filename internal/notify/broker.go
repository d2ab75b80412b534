package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/petmatch/petmatch/internal/model"
)

// RoutingPrefix prefixes the user id in every routing key, so a consumer can
// bind "notification.#" for everything or "notification.<id>" for one user.
const RoutingPrefix = "notification."

// Event is the broker message body. The user id travels separately because
// model.Notification does not serialize it.
type Event struct {
	UserID       string             `json:"userId"`
	Notification model.Notification `json:"notification"`
}

// Broker publishes notifications to a RabbitMQ topic exchange and forwards
// what arrives on it into a local Hub.
type Broker struct {
	conn     *amqp.Connection
	exchange string
	logger   *slog.Logger

	// amqp channels must not be used for concurrent publishes
	mu sync.Mutex
	ch *amqp.Channel
}

// DialBroker connects and declares the topic exchange.
func DialBroker(url, exchange string, logger *slog.Logger) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: opening channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: declaring exchange %s: %w", exchange, err)
	}

	return &Broker{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

// Publish sends n to the exchange, routed by its user.
func (b *Broker) Publish(ctx context.Context, n model.Notification) error {
	key, msg, err := encodeEvent(n)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ch.PublishWithContext(ctx,
		b.exchange, // exchange
		key,        // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	); err != nil {
		return fmt.Errorf("notify: publishing to %s: %w", key, err)
	}
	return nil
}

// Forward consumes every notification on the exchange through a private,
// auto-deleted queue and publishes it into hub. It blocks until ctx is done
// or the broker connection closes.
func (b *Broker) Forward(ctx context.Context, hub *Hub) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("notify: opening consumer channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // name (server generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("notify: declaring queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, RoutingPrefix+"#", b.exchange, false, nil); err != nil {
		return fmt.Errorf("notify: binding queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("notify: consuming %s: %w", q.Name, err)
	}

	b.logger.Info("forwarding broker notifications", slog.String("queue", q.Name))
	forward(ctx, deliveries, hub, b.logger)
	return nil
}

// Close closes the channel and the connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ch.Close(); err != nil && err != amqp.ErrClosed {
		b.conn.Close()
		return fmt.Errorf("notify: closing channel: %w", err)
	}
	if err := b.conn.Close(); err != nil && err != amqp.ErrClosed {
		return fmt.Errorf("notify: closing connection: %w", err)
	}
	return nil
}

func forward(ctx context.Context, deliveries <-chan amqp.Delivery, hub *Hub, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			n, err := decodeEvent(d.Body)
			if err != nil {
				logger.Warn("dropping malformed broker message",
					slog.String("routingKey", d.RoutingKey),
					slog.String("error", err.Error()),
				)
				continue
			}
			if err := hub.Publish(ctx, n); err != nil {
				logger.Warn("hub rejected notification", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func encodeEvent(n model.Notification) (string, amqp.Publishing, error) {
	if n.UserID == "" {
		return "", amqp.Publishing{}, fmt.Errorf("notify: notification %s has no user", n.ID)
	}
	body, err := json.Marshal(Event{UserID: n.UserID, Notification: n})
	if err != nil {
		return "", amqp.Publishing{}, fmt.Errorf("notify: encoding event: %w", err)
	}
	return RoutingPrefix + n.UserID, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   n.ID,
		Timestamp:   n.CreatedAt,
		Body:        body,
	}, nil
}

func decodeEvent(body []byte) (model.Notification, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return model.Notification{}, fmt.Errorf("notify: decoding event: %w", err)
	}
	if strings.TrimSpace(ev.UserID) == "" {
		return model.Notification{}, fmt.Errorf("notify: event has no user")
	}
	n := ev.Notification
	n.UserID = ev.UserID
	return n, nil
}
