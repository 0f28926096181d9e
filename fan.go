package fankit

import (
	"hash/fnv"
	"os"
	"strings"
	"sync"

	"github.com/brutella/hap/characteristic"
	"github.com/charmbracelet/log"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"

	"github.com/hubertat/fankit/entity"
	"github.com/hubertat/fankit/hub"
	"github.com/hubertat/fankit/speed"
)

const uniqueIdDomain = "crestron"
const maxJoin = 65535
const maxSteps = 100

// FanConfig describes a single fan. Keys not listed here are ignored.
type FanConfig struct {
	Name           string `json:"name" yaml:"name"`
	SpeedJoin      int    `json:"speed_join" yaml:"speed_join"`
	SpeedSteps     *int   `json:"speed_steps" yaml:"speed_steps"`
	ReverseJoin    *int   `json:"reverse_join" yaml:"reverse_join"`
	Hub            string `json:"hub" yaml:"hub"`
	DisableHomekit bool   `json:"disable_homekit" yaml:"disable_homekit"`
}

func checkJoin(name string, join int) error {
	if join < 1 || join > maxJoin {
		return errors.Errorf("%s must be between 1 and %d (got %d)", name, maxJoin, join)
	}
	return nil
}

func (fc FanConfig) Validate() error {
	if len(strings.TrimSpace(fc.Name)) == 0 {
		return errors.New("fan name is required")
	}
	if fc.SpeedJoin == 0 {
		return errors.Errorf("fan %s: speed_join is required", fc.Name)
	}
	if err := checkJoin("speed_join", fc.SpeedJoin); err != nil {
		return errors.Wrapf(err, "fan %s", fc.Name)
	}
	if fc.SpeedSteps != nil && (*fc.SpeedSteps < 1 || *fc.SpeedSteps > maxSteps) {
		return errors.Errorf("fan %s: speed_steps must be between 1 and %d (got %d)", fc.Name, maxSteps, *fc.SpeedSteps)
	}
	if fc.ReverseJoin != nil {
		if err := checkJoin("reverse_join", *fc.ReverseJoin); err != nil {
			return errors.Wrapf(err, "fan %s", fc.Name)
		}
	}
	return nil
}

// Fan adapts a hub's speed and reverse joins to a platform fan entity.
// Speed and direction are never cached, every read goes to the hub.
type Fan struct {
	config FanConfig

	hub         hub.Hub
	mapper      speed.Mapper
	speedJoin   uint16
	reverseJoin uint16
	reversible  bool
	uniqueId    string

	hk         *FanAccessory
	hkSpeed    *characteristic.RotationSpeed
	hkDir      *characteristic.RotationDirection
	hkFault    *characteristic.StatusFault
	mqttPrefix string

	lock       sync.Mutex
	publishers []entity.Publisher
	attached   bool
	logger     *log.Logger
}

func NewFan(config FanConfig, h hub.Hub) (*Fan, error) {
	err := config.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid fan config")
	}
	if h == nil {
		return nil, errors.Errorf("fan %s: no hub", config.Name)
	}

	fan := &Fan{
		config:    config,
		hub:       h,
		speedJoin: uint16(config.SpeedJoin),
		uniqueId:  fanUniqueId(config.Name),
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "Fan " + config.Name + ": ",
			Level:  log.GetLevel(),
		}),
	}
	if config.SpeedSteps != nil {
		fan.mapper = speed.Mapper{Steps: *config.SpeedSteps}
	}
	if config.ReverseJoin != nil {
		fan.reverseJoin = uint16(*config.ReverseJoin)
		fan.reversible = true
	}

	if !config.DisableHomekit {
		fan.initHomeKit()
	}

	return fan, nil
}

func fanUniqueId(name string) string {
	return strings.ReplaceAll(slug.Make(uniqueIdDomain+"_fan_"+name), "-", "_")
}

func (f *Fan) Config() FanConfig {
	return f.config
}

func (f *Fan) Name() string {
	return f.config.Name
}

func (f *Fan) UniqueId() string {
	return f.uniqueId
}

// GetUniqueId is the HomeKit accessory id.
func (f *Fan) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("Fan_" + f.config.Name))
	return hash.Sum64()
}

func (f *Fan) Available() bool {
	return f.hub.IsAvailable()
}

// ShouldPoll is false, state changes arrive through hub callbacks.
func (f *Fan) ShouldPoll() bool {
	return false
}

func (f *Fan) SupportsDirection() bool {
	return f.reversible
}

func (f *Fan) SpeedCount() int {
	return f.mapper.SpeedCount()
}

func (f *Fan) Percentage() int {
	return f.mapper.Decode(f.hub.GetAnalog(f.speedJoin))
}

func (f *Fan) IsOn() bool {
	return f.Percentage() > 0
}

func (f *Fan) CurrentDirection() (entity.Direction, bool) {
	if !f.reversible {
		return "", false
	}
	if f.hub.GetDigital(f.reverseJoin) {
		return entity.Reverse, true
	}
	return entity.Forward, true
}

func (f *Fan) State() entity.State {
	return entity.StateOf(f)
}

func (f *Fan) SetPercentage(percentage int) {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	if percentage == 0 {
		f.TurnOff()
		return
	}

	raw := f.mapper.Encode(percentage)
	f.logger.Debug("set percentage", "percentage", percentage, "raw", raw)
	f.hub.SetAnalog(f.speedJoin, raw)
}

// TurnOn without a percentage starts the fan at its lowest speed.
func (f *Fan) TurnOn(percentage *int) {
	if percentage == nil {
		f.SetPercentage(f.mapper.DefaultOnPercentage())
		return
	}
	f.SetPercentage(*percentage)
}

func (f *Fan) TurnOff() {
	f.logger.Debug("turn off")
	f.hub.SetAnalog(f.speedJoin, 0)
}

func (f *Fan) SetDirection(direction entity.Direction) {
	if !f.reversible {
		return
	}
	f.logger.Debug("set direction", "direction", direction)
	f.hub.SetDigital(f.reverseJoin, direction == entity.Reverse)
}

func (f *Fan) AddPublisher(p entity.Publisher) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.publishers = append(f.publishers, p)
}

// Attach subscribes the fan to hub changes and publishes the current state.
func (f *Fan) Attach() {
	f.lock.Lock()
	if f.attached {
		f.lock.Unlock()
		return
	}
	f.attached = true
	f.lock.Unlock()

	f.hub.RegisterCallback(f)
	f.publishState()
}

func (f *Fan) Detach() {
	f.lock.Lock()
	f.attached = false
	f.lock.Unlock()

	f.hub.RemoveCallback(f)
}

// OnHubEvent republishes the whole state on any hub change, whatever the channel.
func (f *Fan) OnHubEvent(ev hub.Event) {
	f.publishState()
}

func (f *Fan) publishState() {
	st := f.State()

	f.syncHomeKit(st)

	f.lock.Lock()
	publishers := make([]entity.Publisher, len(f.publishers))
	copy(publishers, f.publishers)
	f.lock.Unlock()

	for _, p := range publishers {
		p.PublishState(st)
	}
}
