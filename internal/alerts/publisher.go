package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"stream-verification/internal/config"
	"stream-verification/internal/dto"
)

// Publisher fans raised alerts out to a RabbitMQ topic exchange so external
// consumers (notification services, dashboards) can react without coupling to
// the stream path.
type Publisher struct {
	config     *config.Config
	rabbitConn *amqp.Connection
	rabbitChan *amqp.Channel
}

// NewPublisher dials RabbitMQ and declares the alert exchange and queue.
func NewPublisher(cfg *config.Config) (*Publisher, error) {
	p := &Publisher{config: cfg}

	var err error
	p.rabbitConn, err = amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, err
	}

	p.rabbitChan, err = p.rabbitConn.Channel()
	if err != nil {
		p.rabbitConn.Close()
		return nil, err
	}

	// Declare exchange
	err = p.rabbitChan.ExchangeDeclare(
		cfg.RabbitMQExchange, // name
		"topic",              // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		p.Close()
		return nil, err
	}

	// Declare queue
	_, err = p.rabbitChan.QueueDeclare(
		cfg.RabbitMQQueue, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		p.Close()
		return nil, err
	}

	// Bind queue to exchange for every stream kind
	err = p.rabbitChan.QueueBind(
		cfg.RabbitMQQueue,           // queue name
		cfg.RabbitMQRoutingKey+".#", // routing key
		cfg.RabbitMQExchange,        // exchange
		false,
		nil,
	)
	if err != nil {
		p.Close()
		return nil, err
	}

	log.Printf("RabbitMQ initialized: exchange=%s, queue=%s, routing_key=%s",
		cfg.RabbitMQExchange, cfg.RabbitMQQueue, cfg.RabbitMQRoutingKey)

	return p, nil
}

// PublishAlert publishes one alert event, routed by stream kind.
func (p *Publisher) PublishAlert(ctx context.Context, event dto.AlertEvent) error {
	if p.rabbitChan == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	routingKey := fmt.Sprintf("%s.%s", p.config.RabbitMQRoutingKey, event.Kind)
	err = p.rabbitChan.PublishWithContext(ctx,
		p.config.RabbitMQExchange, // exchange
		routingKey,                // routing key
		false,                     // mandatory
		false,                     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)

	return err
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p.rabbitChan != nil {
		p.rabbitChan.Close()
	}
	if p.rabbitConn != nil {
		p.rabbitConn.Close()
	}
}
