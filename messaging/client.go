package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"clothstock/config"
)

// Client publishes to the configured broker, MQTT or Kafka.
type Client struct {
	mu       sync.RWMutex
	cfg      *config.MessagingConfig
	log      *zap.Logger
	mqttConn mqtt.Client
	kafkaW   *kafkago.Writer
}

func NewClient(cfg *config.MessagingConfig, log *zap.Logger) *Client {
	return &Client{cfg: cfg, log: log.Named("messaging")}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.cfg.Backend {
	case "mqtt":
		return c.connectMQTT()
	case "kafka":
		return c.connectKafka(ctx)
	default:
		return fmt.Errorf("unknown messaging backend: %s", c.cfg.Backend)
	}
}

func (c *Client) connectMQTT() error {
	broker := fmt.Sprintf("tcp://%s:%d", c.cfg.MQTT.Broker, c.cfg.MQTT.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(c.cfg.MQTT.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.log.Warn("mqtt connection lost", zap.Error(err))
		})

	client := mqtt.NewClient(opts)
	// Kept even if the first attempt times out; paho keeps retrying.
	c.mqttConn = client
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connect: timed out reaching %s", broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.log.Info("mqtt connected", zap.String("broker", broker))
	return nil
}

func (c *Client) connectKafka(ctx context.Context) error {
	if len(c.cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	var lastErr error
	for _, broker := range c.cfg.Kafka.Brokers {
		dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		conn, err := kafkago.DialContext(dctx, "tcp", broker)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		c.kafkaW = &kafkago.Writer{
			Addr:                   kafkago.TCP(c.cfg.Kafka.Brokers...),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
		}
		c.log.Info("kafka connected", zap.String("broker", broker))
		return nil
	}
	return fmt.Errorf("kafka connect: %w", lastErr)
}

// Publish sends payload to topic. key orders messages within a Kafka
// partition and is ignored by MQTT.
func (c *Client) Publish(ctx context.Context, topic, key string, payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.cfg.Backend {
	case "mqtt":
		if c.mqttConn == nil || !c.mqttConn.IsConnected() {
			return fmt.Errorf("mqtt not connected")
		}
		token := c.mqttConn.Publish(topic, 1, false, payload)
		select {
		case <-token.Done():
			return token.Error()
		case <-ctx.Done():
			return ctx.Err()
		}
	case "kafka":
		if c.kafkaW == nil {
			return fmt.Errorf("kafka writer not initialized")
		}
		return c.kafkaW.WriteMessages(ctx, kafkago.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: payload,
		})
	default:
		return fmt.Errorf("unknown messaging backend: %s", c.cfg.Backend)
	}
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.cfg.Backend {
	case "mqtt":
		return c.mqttConn != nil && c.mqttConn.IsConnected()
	case "kafka":
		return c.kafkaW != nil
	}
	return false
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mqttConn != nil {
		c.mqttConn.Disconnect(1000)
		c.mqttConn = nil
	}
	if c.kafkaW != nil {
		if err := c.kafkaW.Close(); err != nil {
			c.log.Warn("kafka writer close", zap.Error(err))
		}
		c.kafkaW = nil
	}
}
