package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

// AMQPSource feeds the hub from a RabbitMQ queue. Deliveries that are
// not JSON objects are rejected without requeue so a poison message
// cannot loop forever.
type AMQPSource struct {
	conn   *amqp091.Connection
	ch     *amqp091.Channel
	queue  string
	hub    *Hub
	logger *slog.Logger
}

func NewAMQPSource(url, queue string, hub *Hub, logger *slog.Logger) (*AMQPSource, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPSource{conn: conn, ch: ch, queue: queue, hub: hub, logger: logger}, nil
}

// Run consumes and forwards deliveries until the context ends.
func (s *AMQPSource) Run(ctx context.Context) error {
	if err := s.ch.Qos(10, 0, false); err != nil {
		return err
	}
	deliveries, err := s.ch.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	s.logger.Info("amqp source listening", slog.String("queue", s.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			var probe map[string]json.RawMessage
			if err := json.Unmarshal(msg.Body, &probe); err != nil {
				s.logger.Warn("rejecting non-object delivery", slog.Any("err", err))
				_ = msg.Nack(false, false)
				continue
			}
			s.hub.Broadcast(EventNewMessage, json.RawMessage(msg.Body))
			_ = msg.Ack(false)
		}
	}
}

func (s *AMQPSource) Close() error {
	_ = s.ch.Close()
	return s.conn.Close()
}
