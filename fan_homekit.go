package fankit

import (
	"fmt"
	"math"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"

	"github.com/hubertat/fankit/entity"
)

func (f *Fan) initHomeKit() {
	info := accessory.Info{
		Name:         f.config.Name,
		SerialNumber: fmt.Sprintf("fan:%s:%02d", f.hub.String(), f.speedJoin),
	}
	f.hk = NewFanAccessory(info)

	f.hkSpeed = characteristic.NewRotationSpeed()
	f.hkSpeed.SetMinValue(0)
	f.hkSpeed.SetMaxValue(100)
	f.hkSpeed.SetStepValue(f.mapper.PercentageStep())
	f.hk.Fan.AddC(f.hkSpeed.C)

	if f.reversible {
		f.hkDir = characteristic.NewRotationDirection()
		f.hk.Fan.AddC(f.hkDir.C)
		f.hkDir.OnValueRemoteUpdate(f.hkSetDirection)
	}

	f.hkFault = characteristic.NewStatusFault()
	f.hkFault.SetValue(characteristic.StatusFaultNoFault)
	f.hk.Fan.AddC(f.hkFault.C)

	f.hk.Fan.On.OnValueRemoteUpdate(f.hkSetOn)
	f.hkSpeed.OnValueRemoteUpdate(f.hkSetSpeed)
}

func (f *Fan) GetHk() *accessory.A {
	if f.hk == nil {
		return nil
	}
	return f.hk.A
}

func (f *Fan) hkSetOn(on bool) {
	if !on {
		f.TurnOff()
		return
	}
	// Home sends On together with a speed, keep the current one.
	if !f.IsOn() {
		f.TurnOn(nil)
	}
}

func (f *Fan) hkSetSpeed(value float64) {
	f.SetPercentage(int(math.Round(value)))
}

func (f *Fan) hkSetDirection(value int) {
	if value == characteristic.RotationDirectionCounterclockwise {
		f.SetDirection(entity.Reverse)
		return
	}
	f.SetDirection(entity.Forward)
}

func (f *Fan) syncHomeKit(st entity.State) {
	if f.hk == nil {
		return
	}

	if st.Available {
		f.hkFault.SetValue(characteristic.StatusFaultNoFault)
	} else {
		f.hkFault.SetValue(characteristic.StatusFaultGeneralFault)
	}

	f.hk.Fan.On.SetValue(st.On)
	if st.On {
		f.hkSpeed.SetValue(float64(st.Percentage))
	}

	if f.hkDir != nil {
		if st.Direction == entity.Reverse {
			f.hkDir.SetValue(characteristic.RotationDirectionCounterclockwise)
		} else {
			f.hkDir.SetValue(characteristic.RotationDirectionClockwise)
		}
	}
}
