// Package mq consumes order and inventory events published by the
// order-placement collaborator and feeds them through the same services the
// HTTP surface uses.
package mq

import (
	"context"
	"encoding/json"
	"errors"

	"shoply/internal/domain"
	"shoply/internal/repository"
	"shoply/internal/service"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	EventOrderStatusChanged = "order.status_changed"
	EventStockChanged       = "stock.changed"
)

// envelope is the wire shape of every message on the queue.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type orderStatusChanged struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
}

type Consumer struct {
	url    string
	queue  string
	orders *service.OrderService
	stock  *service.StockService
	logger *zap.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(url, queue string, orders *service.OrderService, stock *service.StockService, logger *zap.Logger) *Consumer {
	return &Consumer{url: url, queue: queue, orders: orders, stock: stock, logger: logger}
}

// Start connects, declares the queue and consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return err
	}
	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return err
	}
	c.conn = conn
	c.ch = ch

	go func() {
		defer c.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				c.handle(ctx, d)
			}
		}
	}()
	c.logger.Info("order event consumer started", zap.String("queue", c.queue))
	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var env envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		c.logger.Warn("dropping malformed event", zap.Error(err))
		d.Nack(false, false)
		return
	}
	switch env.Event {
	case EventOrderStatusChanged:
		c.handleOrderStatus(ctx, d, env.Data)
	case EventStockChanged:
		// any stock movement triggers a scan; the dedup window absorbs bursts
		if _, err := c.stock.Scan(ctx); err != nil {
			c.logger.Warn("stock scan failed", zap.Error(err))
		}
		d.Ack(false)
	default:
		c.logger.Warn("dropping unknown event", zap.String("event", env.Event))
		d.Nack(false, false)
	}
}

func (c *Consumer) handleOrderStatus(ctx context.Context, d amqp.Delivery, raw json.RawMessage) {
	var msg orderStatusChanged
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn("dropping malformed order event", zap.Error(err))
		d.Nack(false, false)
		return
	}
	status, ok := domain.ParseOrderStatus(msg.Status)
	if !ok {
		c.logger.Warn("dropping order event with unknown status", zap.String("status", msg.Status))
		d.Nack(false, false)
		return
	}
	_, err := c.orders.UpdateStatus(ctx, msg.OrderID, status, &service.ShippingUpdate{
		TrackingNumber: msg.TrackingNumber,
		Carrier:        msg.Carrier,
	})
	switch {
	case err == nil:
		d.Ack(false)
	case errors.Is(err, repository.ErrOrderNotFound), errors.Is(err, service.ErrInvalidTransition):
		// not retryable: log and drop
		c.logger.Warn("order event rejected",
			zap.String("order_id", msg.OrderID),
			zap.String("status", msg.Status),
			zap.Error(err),
		)
		d.Nack(false, false)
	default:
		// transient store failure: requeue once the broker redelivers
		c.logger.Error("order event failed", zap.String("order_id", msg.OrderID), zap.Error(err))
		d.Nack(false, true)
	}
}
