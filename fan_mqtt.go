package fankit

import (
	"encoding/json"

	"github.com/eclipse/paho.golang/paho"

	"github.com/hubertat/fankit/entity"
	"github.com/hubertat/fankit/mqtt"
)

const defaultMqttPrefix = "fankit"

func (f *Fan) mqttTopic(suffix string) string {
	prefix := f.mqttPrefix
	if len(prefix) == 0 {
		prefix = defaultMqttPrefix
	}
	return prefix + "/fan/" + f.uniqueId + "/" + suffix
}

func (f *Fan) MqttSubscribeTopic() string {
	return f.mqttTopic("set")
}

func (f *Fan) MqttStateTopic() string {
	return f.mqttTopic("state")
}

func (f *Fan) MqttHandle(pub *paho.Publish) {
	cmd := entity.Command{}
	err := json.Unmarshal(pub.Payload, &cmd)
	if err != nil {
		f.logger.Error("failed to decode mqtt command", "err", err, "payload", string(pub.Payload))
		return
	}

	err = entity.Apply(f, cmd)
	if err != nil {
		f.logger.Error("rejected mqtt command", "err", err)
	}
}

// EnableMqtt makes the fan publish its state to publisher under prefix.
func (f *Fan) EnableMqtt(prefix string, publisher mqtt.Publisher) {
	f.mqttPrefix = prefix
	f.AddPublisher(&mqttStatePublisher{
		topic:     f.MqttStateTopic(),
		publisher: publisher,
		fan:       f,
	})
}

type mqttStatePublisher struct {
	topic     string
	publisher mqtt.Publisher
	fan       *Fan
}

func (msp *mqttStatePublisher) PublishState(st entity.State) {
	payload, err := json.Marshal(st)
	if err != nil {
		msp.fan.logger.Error("failed to encode state", "err", err)
		return
	}

	err = msp.publisher.Publish(msp.topic, payload)
	if err != nil {
		msp.fan.logger.Warn("failed to publish state", "topic", msp.topic, "err", err)
	}
}
