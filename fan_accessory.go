package fankit

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/service"
)

type FanAccessory struct {
	*accessory.A
	Fan *service.Fan
}

func NewFanAccessory(info accessory.Info) *FanAccessory {
	acc := FanAccessory{}
	acc.A = accessory.New(info, accessory.TypeFan)
	acc.Fan = service.NewFan()

	acc.AddS(acc.Fan.S)
	return &acc
}
