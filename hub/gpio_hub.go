package hub

import (
	"context"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/racerxdl/go-mcp23017"
	"github.com/stianeikeland/go-rpio/v4"
)

const gpioHubName = "gpio"
const defaultPwmFrequency = 100

// McpExpander moves digital joins from Pi pins to an MCP23017 on the i2c bus.
type McpExpander struct {
	BusNo uint8 `json:"bus_no" yaml:"bus_no"`
	DevNo uint8 `json:"dev_no" yaml:"dev_no"`
}

// GpioHub drives joins from Raspberry Pi pins. Analog joins are hardware PWM
// pins (BCM numbering) with a 65535 long cycle, digital joins are outputs.
type GpioHub struct {
	PwmFrequency  int          `json:"pwm_frequency" yaml:"pwm_frequency"`
	InvertDigital bool         `json:"invert_digital" yaml:"invert_digital"`
	Expander      *McpExpander `json:"expander" yaml:"expander"`

	analog  map[uint16]uint16
	digital map[uint16]bool
	device  *mcp23017.Device
	isReady bool
	fault   bool

	lock       sync.Mutex
	callbacks  Callbacks
	logger     *log.Logger
	loggerOnce sync.Once
}

func checkPins(pins []uint16) error {
	for _, pin := range pins {
		if pin > 255 {
			return errors.Errorf("pin %d out of range (gpio takes uint8 pin)", pin)
		}
	}
	return nil
}

func (gh *GpioHub) pwmClock() int {
	freq := gh.PwmFrequency
	if freq <= 0 {
		freq = defaultPwmFrequency
	}
	return freq * MaxAnalog
}

func (gh *GpioHub) Setup(ctx context.Context, analog []uint16, digital []uint16) (err error) {
	err = checkPins(analog)
	if err != nil {
		return errors.Wrap(err, "invalid analog channel")
	}
	err = checkPins(digital)
	if err != nil {
		return errors.Wrap(err, "invalid digital channel")
	}

	err = rpio.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to setup gpio hub for channels: %v, %v", analog, digital)
	}

	if gh.Expander != nil {
		gh.device, err = mcp23017.Open(gh.Expander.BusNo, gh.Expander.DevNo)
		if err != nil {
			rpio.Close()
			return errors.Wrap(err, "failed to open mcp23017 expander")
		}
	}

	gh.analog = make(map[uint16]uint16)
	gh.digital = make(map[uint16]bool)

	for _, ch := range analog {
		pin := rpio.Pin(ch)
		pin.Pwm()
		pin.Freq(gh.pwmClock())
		pin.DutyCycle(0, MaxAnalog)
		gh.analog[ch] = 0
	}

	for _, ch := range digital {
		if gh.device != nil {
			err = gh.device.PinMode(uint8(ch), mcp23017.OUTPUT)
			if err != nil {
				return errors.Wrapf(err, "failed to set expander pin %d as output", ch)
			}
		} else {
			rpio.Pin(ch).Output()
		}
		gh.digital[ch] = false
		gh.writeDigital(ch, false)
	}

	gh.isReady = true
	return nil
}

func (gh *GpioHub) Close() error {
	gh.lock.Lock()
	gh.isReady = false
	for ch := range gh.analog {
		rpio.Pin(ch).DutyCycle(0, MaxAnalog)
	}
	for ch := range gh.digital {
		gh.writeDigital(ch, false)
	}
	gh.lock.Unlock()

	if gh.device != nil {
		gh.device.Close()
	}
	return rpio.Close()
}

func (gh *GpioHub) String() string {
	return gpioHubName
}

func (gh *GpioHub) IsAvailable() bool {
	gh.lock.Lock()
	defer gh.lock.Unlock()

	return gh.isReady && !gh.fault
}

func (gh *GpioHub) GetAnalog(channel uint16) uint16 {
	gh.lock.Lock()
	defer gh.lock.Unlock()

	return gh.analog[channel]
}

func (gh *GpioHub) SetAnalog(channel uint16, value uint16) {
	gh.lock.Lock()
	_, known := gh.analog[channel]
	if !gh.isReady || !known {
		gh.lock.Unlock()
		gh.getLogger().Warn("ignoring write to unknown analog channel", "channel", channel)
		return
	}
	rpio.Pin(channel).DutyCycle(uint32(value), MaxAnalog)
	gh.analog[channel] = value
	gh.lock.Unlock()

	gh.callbacks.Notify(Event{Kind: EventAnalog, Channel: channel, Analog: value})
}

func (gh *GpioHub) GetDigital(channel uint16) bool {
	gh.lock.Lock()
	if !gh.isReady {
		state := gh.digital[channel]
		gh.lock.Unlock()
		return state
	}
	wasFaulty := gh.fault
	state := gh.readDigital(channel)
	nowFaulty := gh.fault
	gh.lock.Unlock()

	gh.notifyFault(wasFaulty, nowFaulty)
	return state
}

func (gh *GpioHub) SetDigital(channel uint16, value bool) {
	gh.lock.Lock()
	_, known := gh.digital[channel]
	if !gh.isReady || !known {
		gh.lock.Unlock()
		gh.getLogger().Warn("ignoring write to unknown digital channel", "channel", channel)
		return
	}
	wasFaulty := gh.fault
	gh.writeDigital(channel, value)
	gh.digital[channel] = value
	nowFaulty := gh.fault
	gh.lock.Unlock()

	gh.notifyFault(wasFaulty, nowFaulty)
	gh.callbacks.Notify(Event{Kind: EventDigital, Channel: channel, Digital: value})
}

func (gh *GpioHub) RegisterCallback(l Listener) {
	gh.callbacks.Add(l)
}

func (gh *GpioHub) RemoveCallback(l Listener) {
	gh.callbacks.Remove(l)
}

// writeDigital expects gh.lock to be held.
func (gh *GpioHub) writeDigital(channel uint16, value bool) {
	if gh.InvertDigital {
		value = !value
	}

	if gh.device == nil {
		if value {
			rpio.Pin(channel).High()
		} else {
			rpio.Pin(channel).Low()
		}
		return
	}

	err := gh.device.DigitalWrite(uint8(channel), mcp23017.PinLevel(value))
	gh.setFault(err)
}

// readDigital expects gh.lock to be held.
func (gh *GpioHub) readDigital(channel uint16) (state bool) {
	if gh.device == nil {
		state = rpio.Pin(channel).Read() == rpio.High
	} else {
		level, err := gh.device.DigitalRead(uint8(channel))
		gh.setFault(err)
		if err != nil {
			return gh.digital[channel]
		}
		state = bool(level)
	}

	if gh.InvertDigital {
		state = !state
	}
	return
}

func (gh *GpioHub) getLogger() *log.Logger {
	gh.loggerOnce.Do(func() {
		gh.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "GpioHub: ",
			Level:  log.GetLevel(),
		})
	})
	return gh.logger
}

// notifyFault must be called without gh.lock held.
func (gh *GpioHub) notifyFault(wasFaulty, nowFaulty bool) {
	if wasFaulty != nowFaulty {
		gh.callbacks.Notify(Event{Kind: EventAvailability, Digital: !nowFaulty})
	}
}

func (gh *GpioHub) setFault(err error) {
	if err != nil {
		gh.getLogger().Error("expander i/o failed", "err", err)
	}
	gh.fault = err != nil
}
