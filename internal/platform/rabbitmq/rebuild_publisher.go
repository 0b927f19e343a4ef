package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"spacebio-rag/internal/model"
)

type RebuildPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewRebuildPublisher(conn *amqp.Connection, queueName string) *RebuildPublisher {
	return &RebuildPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *RebuildPublisher) PublishRebuild(ctx context.Context, req model.RebuildRequest) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal rebuild request failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			MessageId:    req.RunID,
			Timestamp:    req.RequestedAt,
		},
	); err != nil {
		return fmt.Errorf("publish rebuild request failed: %w", err)
	}
	return nil
}

// DeclareQueue declares the durable work queue shared by publisher and worker.
func DeclareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s failed: %w", name, err)
	}
	return nil
}
