package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/hubertat/fankit"
	"github.com/hubertat/fankit/hub"
)

var (
	Version string
	Build   string
)

func main() {
	log.SetLevel(log.DebugLevel)
	log.Info("fankit started")
	log.Info("mock instance for testing purposes, should work on MacOs")

	steps := 3
	reverse := 2

	fk := &fankit.FanKit{
		Name:        "fankit mock",
		HkPin:       "88008800",
		HkDirectory: "./mock_homekit",
		ApiAddress:  "localhost:8088",
		Mock:        &hub.MockHub{},
		Fans: []fankit.FanConfig{
			{Name: "fake stepped fan", SpeedJoin: 1, SpeedSteps: &steps},
			{Name: "fake ceiling fan", SpeedJoin: 3, ReverseJoin: &reverse},
		},
	}

	err := fk.Validate()
	if err != nil {
		log.Fatal("invalid mock config", "err", err)
	}

	ctx := context.Background()
	log.Info("will init fankit hubs...")
	err = fk.InitHubs(ctx)
	defer fk.Close()
	if err != nil {
		log.Fatal("failed to init hubs", "err", err)
	}

	log.Info("will init fans...")
	err = fk.InitFans()
	if err != nil {
		log.Fatal("failed to init fans", "err", err)
	}

	fk.Mock.MonitorStateChanges(os.Stdout)
	fk.StartApi()
	fk.PrintFanStatus(os.Stdout)

	log.Info("starting mock with HomeKit service")
	err = fk.StartHomeKit(ctx, "mock: "+Version)
	if err != nil {
		log.Error("HomeKit server stopped", "err", err)
	}
}
