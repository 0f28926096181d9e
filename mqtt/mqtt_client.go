package mqtt

import (
	"context"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"
)

const subscribeTimeoutSeconds = 15
const connectionTimeoutSeconds = 5
const publishTimeoutSeconds = 4

type MqttHandler interface {
	MqttHandle(pub *paho.Publish)
	MqttSubscribeTopic() string
}

type Publisher interface {
	Publish(topic string, payload []byte) error
}

type MqttClient struct {
	config autopaho.ClientConfig
	conn   *autopaho.ConnectionManager
	logger *log.Logger

	lock     sync.Mutex
	handlers map[string]MqttHandler
}

func (mc *MqttClient) Publish(topic string, payload []byte) (err error) {
	if mc.conn == nil {
		return errors.New("mqtt client not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeoutSeconds*time.Second)
	defer cancel()

	_, err = mc.conn.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     1,
		Retain:  true,
		Payload: payload,
	})
	return
}

func (mc *MqttClient) topics() (topics []string) {
	mc.lock.Lock()
	defer mc.lock.Unlock()

	for topic := range mc.handlers {
		topics = append(topics, topic)
	}
	return
}

func (mc *MqttClient) onConnUp(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
	mc.logger.Info("Connected to MQTT broker")

	subs := []paho.SubscribeOptions{}
	for _, topic := range mc.topics() {
		subs = append(subs, paho.SubscribeOptions{
			QoS:   1,
			Topic: topic,
		})
	}
	if len(subs) == 0 {
		return
	}

	mc.logger.Debug("subscribing mqtt", "subs", subs)

	ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeoutSeconds*time.Second)
	defer cancel()

	_, err := cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: subs,
	})
	if err != nil {
		mc.logger.Error("Failed to subscribe to topics", "err", err)
	}
}

func (mc *MqttClient) onConnError(err error) {
	mc.logger.Error("Received Mqtt connection error", "err", err)
}

func (mc *MqttClient) onSrvDisconnect(d *paho.Disconnect) {
	mc.logger.Info("Disconnected from MQTT broker")
}

func (mc *MqttClient) route(pr paho.PublishReceived) (bool, error) {
	mc.lock.Lock()
	handler, found := mc.handlers[pr.Packet.Topic]
	mc.lock.Unlock()

	if !found {
		mc.logger.Warn("received message on unhandled topic", "topic", pr.Packet.Topic)
		return true, nil
	}

	mc.logger.Debug("received message", "topic", pr.Packet.Topic, "payload", string(pr.Packet.Payload))
	handler.MqttHandle(pr.Packet)
	return true, nil
}

func (mc *MqttClient) setHandlers(handlers []MqttHandler) {
	mc.lock.Lock()
	defer mc.lock.Unlock()

	mc.handlers = make(map[string]MqttHandler)
	for _, h := range handlers {
		mc.logger.Debug("setting up mqtt topics config", "topic", h.MqttSubscribeTopic())
		mc.handlers[h.MqttSubscribeTopic()] = h
	}
}

func (mc *MqttClient) Connect(ctx context.Context, handlers []MqttHandler) (err error) {
	mc.setHandlers(handlers)

	// ctx bounds the connection manager lifetime, awaitCtx only the first connect
	mc.conn, err = autopaho.NewConnection(ctx, mc.config)
	if err != nil {
		return errors.Wrap(err, "failed to create mqtt connection")
	}

	awaitCtx, cancel := context.WithTimeout(ctx, connectionTimeoutSeconds*time.Second)
	defer cancel()

	err = mc.conn.AwaitConnection(awaitCtx)
	mc.logger.Debug("AwaitConnection done", "err", err)

	return
}

func (mc *MqttClient) Disconnect(ctx context.Context) error {
	mc.setHandlers(nil)

	if mc.conn == nil {
		return nil
	}
	return mc.conn.Disconnect(ctx)
}

func NewMqttClient(broker string, clientId string) (mc *MqttClient, err error) {
	addr, err := url.Parse(broker)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse broker url %s", broker)
		return
	}

	mc = &MqttClient{
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "MqttClient 🐰: ",
			Level:  log.GetLevel(),
		}),
		handlers: make(map[string]MqttHandler),
	}

	mc.config = autopaho.ClientConfig{
		ServerUrls:            []*url.URL{addr},
		KeepAlive:             20,
		SessionExpiryInterval: 60,
		OnConnectionUp:        mc.onConnUp,
		OnConnectError:        mc.onConnError,
		ClientConfig: paho.ClientConfig{
			ClientID:           clientId,
			OnClientError:      mc.onConnError,
			OnServerDisconnect: mc.onSrvDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				mc.route,
			},
		},
	}

	return
}
