package fankit

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	dnslog "github.com/brutella/dnssd/log"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	hklog "github.com/brutella/hap/log"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/fankit/api"
	"github.com/hubertat/fankit/entity"
	"github.com/hubertat/fankit/hub"
	"github.com/hubertat/fankit/mqtt"
	"github.com/hubertat/fankit/recorder"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeName = "fankit"
const homeKitBridgeAuthor = "github.com/hubertat"
const mqttDisconnectTimeout = 3 * time.Second

type FanKit struct {
	Name string      `json:"name" yaml:"name"`
	Fans []FanConfig `json:"fans" yaml:"fans"`

	HkPin       string `json:"hk_pin" yaml:"hk_pin"`
	HkDirectory string `json:"hk_directory" yaml:"hk_directory"`
	HkAddress   string `json:"hk_address" yaml:"hk_address"`
	HkDebug     bool   `json:"hk_debug" yaml:"hk_debug"`

	MqttBroker string `json:"mqtt_broker" yaml:"mqtt_broker"`
	MqttPrefix string `json:"mqtt_prefix" yaml:"mqtt_prefix"`

	ApiAddress string `json:"api_address" yaml:"api_address"`

	Gpio   *hub.GpioHub     `json:"gpio" yaml:"gpio"`
	Mock   *hub.MockHub     `json:"mock" yaml:"mock"`
	Influx *recorder.Influx `json:"influx" yaml:"influx"`

	hubs       map[string]hub.Hub
	fans       []*Fan
	mqttClient *mqtt.MqttClient
	api        *api.Server
}

func (fk *FanKit) configuredHubs() map[string]hub.Hub {
	hubs := make(map[string]hub.Hub)
	if fk.Gpio != nil {
		hubs[fk.Gpio.String()] = fk.Gpio
	}
	if fk.Mock != nil {
		hubs[fk.Mock.String()] = fk.Mock
	}
	return hubs
}

// hubName resolves the hub a fan uses; an empty name means the only configured hub.
func (fk *FanKit) hubName(fc FanConfig) (string, error) {
	if len(fc.Hub) > 0 {
		for name := range fk.hubs {
			if strings.EqualFold(name, fc.Hub) {
				return name, nil
			}
		}
		return "", errors.Errorf("hub %s not set up (fan %s)", fc.Hub, fc.Name)
	}

	if len(fk.hubs) != 1 {
		return "", errors.Errorf("fan %s must name its hub, %d hubs configured", fc.Name, len(fk.hubs))
	}
	for name := range fk.hubs {
		return name, nil
	}
	return "", nil
}

func (fk *FanKit) getChannels(hubName string) (analog []uint16, digital []uint16, err error) {
	for _, fc := range fk.Fans {
		name, nameErr := fk.hubName(fc)
		if nameErr != nil {
			err = nameErr
			return
		}
		if name != hubName {
			continue
		}
		analog = append(analog, uint16(fc.SpeedJoin))
		if fc.ReverseJoin != nil {
			digital = append(digital, uint16(*fc.ReverseJoin))
		}
	}
	return
}

func (fk *FanKit) InitHubs(ctx context.Context) error {
	fk.hubs = fk.configuredHubs()
	if len(fk.hubs) == 0 {
		return errors.New("no hub configured")
	}

	for name, h := range fk.hubs {
		analog, digital, err := fk.getChannels(name)
		if err != nil {
			return err
		}

		err = h.Setup(ctx, analog, digital)
		if err != nil {
			return errors.Wrapf(err, "failed to setup %s hub", name)
		}
	}

	return nil
}

func (fk *FanKit) InitFans() error {
	if fk.Influx != nil {
		err := fk.Influx.Setup()
		if err != nil {
			return errors.Wrap(err, "failed to init influx recorder")
		}
	}

	for _, fc := range fk.Fans {
		name, err := fk.hubName(fc)
		if err != nil {
			return err
		}

		fan, err := NewFan(fc, fk.hubs[name])
		if err != nil {
			return errors.Wrap(err, "failed to init fan")
		}
		if fk.Influx != nil {
			fan.EnableRecorder(fk.Influx)
		}
		fk.fans = append(fk.fans, fan)
	}

	for _, fan := range fk.fans {
		fan.Attach()
	}

	return nil
}

func (fk *FanKit) GetFans() []*Fan {
	return fk.fans
}

func (fk *FanKit) entities() (entities []entity.Entity) {
	for _, fan := range fk.fans {
		entities = append(entities, fan)
	}
	return
}

func (fk *FanKit) GetHkAccessories(firmwareVersion string) (acc []*accessory.A) {
	acc = []*accessory.A{}

	for _, fan := range fk.fans {
		accessory := fan.GetHk()
		if accessory != nil {
			if accessory.Info != nil && accessory.Info.FirmwareRevision != nil {
				accessory.Info.FirmwareRevision.SetValue(firmwareVersion)
			}
			accessory.Id = fan.GetUniqueId()
			acc = append(acc, accessory)
		}
	}

	return
}

func (fk *FanKit) Close() (err error) {
	for _, fan := range fk.fans {
		fan.Detach()
	}

	if fk.api != nil {
		closeErr := fk.api.Close()
		if closeErr != nil {
			err = errors.Wrap(closeErr, "failed to close api")
		}
	}

	if fk.mqttClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mqttDisconnectTimeout)
		defer cancel()
		closeErr := fk.mqttClient.Disconnect(ctx)
		if closeErr != nil {
			err = errors.Wrap(closeErr, "failed to disconnect mqtt")
		}
	}

	if fk.Influx != nil {
		fk.Influx.Close()
	}

	for name, h := range fk.hubs {
		closeErr := h.Close()
		if closeErr != nil {
			err = errors.Wrapf(closeErr, "failed to close %s hub", name)
		}
	}

	return
}

func (fk *FanKit) PrintFanStatus(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "=== configured fans ===")
	for _, fan := range fk.fans {
		st := fan.State()
		fmt.Fprintln(writer, "________")
		fmt.Fprintf(writer, "| fan: %s (%s)\n", st.Name, st.UniqueId)
		fmt.Fprintf(writer, "| hub: %s, available: %v\n", fan.hub.String(), st.Available)
		fmt.Fprintf(writer, "| speed join: %d, speeds: %d\n", fan.speedJoin, st.SpeedCount)
		if fan.SupportsDirection() {
			fmt.Fprintf(writer, "| reverse join: %d, direction: %s\n", fan.reverseJoin, st.Direction)
		}
		fmt.Fprintf(writer, "| on: %v, percentage: %d\n", st.On, st.Percentage)
		fmt.Fprintln(writer, "--------")
	}
	fmt.Fprintln(writer, "-----------------------------")
	fmt.Fprintln(writer)
}

func (fk *FanKit) StartHomeKit(ctx context.Context, firmwareVersion string) error {
	hkName := fk.Name
	if len(hkName) < 1 {
		hkName = homeKitBridgeName
	}
	bridge := accessory.NewBridge(accessory.Info{
		Name:         hkName,
		Manufacturer: homeKitBridgeAuthor,
		Firmware:     firmwareVersion,
	})

	var store hap.Store
	if len(fk.HkDirectory) > 1 {
		store = hap.NewFsStore(fk.HkDirectory)
	} else {
		store = hap.NewFsStore(defaultHomeKitDirectory)
	}
	hkServer, err := hap.NewServer(store, bridge.A, fk.GetHkAccessories(firmwareVersion)...)
	if err != nil {
		return errors.Wrap(err, "failed to create HomeKit server")
	}
	hkServer.Pin = fk.HkPin
	if len(fk.HkAddress) > 0 {
		hkServer.Addr = fk.HkAddress
	}

	if fk.HkDebug {
		hklog.Debug.Enable()
		dnslog.Debug.Enable()
	}

	ctx, cancel := WithSignalCancel(ctx)
	defer cancel()

	return hkServer.ListenAndServe(ctx)
}

// WithSignalCancel returns a context cancelled on SIGINT or SIGTERM.
func WithSignalCancel(ctx context.Context) (context.Context, context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-c:
		case <-ctx.Done():
		}
		// Stop delivering signals.
		signal.Stop(c)
		cancel()
	}()

	return ctx, cancel
}

func (fk *FanKit) InitMqtt(ctx context.Context) (err error) {
	if len(fk.MqttBroker) == 0 {
		err = errors.New("mqtt broker not set")
		return
	}

	clientId := fk.Name
	if len(clientId) == 0 {
		clientId = homeKitBridgeName
	}
	mc, err := mqtt.NewMqttClient(fk.MqttBroker, clientId)
	if err != nil {
		err = errors.Wrap(err, "failed to create mqtt client")
		return
	}

	fk.mqttClient = mc

	prefix := fk.MqttPrefix
	if len(prefix) == 0 {
		prefix = defaultMqttPrefix
	}

	mqttHandlers := []mqtt.MqttHandler{}
	for _, fan := range fk.fans {
		fan.EnableMqtt(prefix, mc)
		mqttHandlers = append(mqttHandlers, fan)
	}

	err = mc.Connect(ctx, mqttHandlers)
	if err != nil {
		err = errors.Wrap(err, "failed to connect to mqtt broker")
		return
	}

	for _, fan := range fk.fans {
		fan.publishState()
	}

	return
}

// StartApi serves the HTTP API in the background when ApiAddress is set.
func (fk *FanKit) StartApi() {
	if len(fk.ApiAddress) == 0 {
		return
	}

	fk.api = api.NewServer(fk.ApiAddress, fk.entities())
	go func() {
		err := fk.api.ListenAndServe()
		if err != nil {
			log.Error("api server stopped", "err", err)
		}
	}()
}
