package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"famfin/internal/logger"
)

const publishTimeout = 5 * time.Second

// Routing keys, one per event family, so delivery workers can bind
// selectively.
const (
	routingBudgetAlert = "budget.alert"
	routingInvitation  = "invitation.created"
)

// AMQPNotifier publishes events to a RabbitMQ exchange as persistent
// JSON messages.
type AMQPNotifier struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// NewAMQPNotifier connects to the broker and declares the exchange and
// the delivery queue bound to both routing keys.
func NewAMQPNotifier(url, exchange, queue string) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	n := &AMQPNotifier{conn: conn, channel: channel, exchange: exchange}
	if err := n.setup(queue); err != nil {
		n.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return n, nil
}

func (n *AMQPNotifier) setup(queue string) error {
	err := n.channel.ExchangeDeclare(
		n.exchange, // name
		"direct",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := n.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range []string{routingBudgetAlert, routingInvitation} {
		if err := n.channel.QueueBind(queue, key, n.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue: %w", err)
		}
	}
	return nil
}

// BudgetAlert publishes a budget alert event. Failures are logged and
// swallowed.
func (n *AMQPNotifier) BudgetAlert(ctx context.Context, event BudgetAlertEvent) {
	if err := n.publish(ctx, routingBudgetAlert, event); err != nil {
		logger.Get().Errorw("failed to publish budget alert",
			"error", err,
			"budget_id", event.BudgetID,
			"kind", event.Kind,
		)
	}
}

// InvitationCreated publishes an invitation event. Failures are logged
// and swallowed.
func (n *AMQPNotifier) InvitationCreated(ctx context.Context, event InvitationEvent) {
	if err := n.publish(ctx, routingInvitation, event); err != nil {
		logger.Get().Errorw("failed to publish invitation event",
			"error", err,
			"invitation_id", event.InvitationID,
		)
	}
}

func (n *AMQPNotifier) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = n.channel.PublishWithContext(
		ctx,
		n.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
