package main

import (
	"context"
	"flag"
	"os"

	"github.com/charmbracelet/log"
	"github.com/hubertat/servicemaker"
	"github.com/pkg/errors"

	"github.com/hubertat/fankit"
)

var (
	Version string
	Build   string

	config      = flag.String("config", "config.json", "path of the configuration file (.json or .yaml)")
	flagInstall = flag.Bool("install", false, "Install service in os")
	flagDebug   = flag.Bool("debug", false, "enable debug logging")

	fkService = servicemaker.ServiceMaker{
		User:               "fankit",
		UserGroups:         []string{"gpio", "i2c"},
		ServicePath:        "/etc/systemd/system/fankit.service",
		ServiceDescription: "FanKit service: HomeKit/MQTT bridge for hub controlled fans. github.com/hubertat/fankit",
		ExecDir:            "/srv/fankit",
		ExecName:           "fankit",
	}
)

func main() {
	flag.Parse()
	if *flagDebug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("fankit started", "version", Version, "build", Build)

	if *flagInstall {
		err := fkService.InstallService()
		if err != nil {
			log.Fatal("failed to install service", "err", err)
		}
		log.Info("service installed!")
		return
	}

	ctx, cancel := fankit.WithSignalCancel(context.Background())
	defer cancel()

	fk, err := fankit.LoadConfig(*config)
	if err != nil {
		log.Fatal("can't load config, will terminate", "config", *config, "err", err)
	}

	err = run(ctx, fk)
	if err != nil {
		cancel()
		log.Fatal("fankit stopped", "err", err)
	}
}

// run blocks until ctx is done or HomeKit stops. Hubs are closed before it returns.
func run(ctx context.Context, fk *fankit.FanKit) error {
	defer fk.Close()

	log.Info("will init fankit hubs...")
	err := fk.InitHubs(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to init hubs")
	}

	log.Info("will init fans...")
	err = fk.InitFans()
	if err != nil {
		return errors.Wrap(err, "failed to init fans")
	}

	if len(fk.MqttBroker) > 0 {
		err = fk.InitMqtt(ctx)
		if err != nil {
			log.Error("mqtt not connected, we will proceed...", "err", err)
		}
	}

	fk.StartApi()
	fk.PrintFanStatus(os.Stdout)

	if len(fk.HkPin) == 8 {
		log.Info("Starting with HomeKit server")
		err = fk.StartHomeKit(ctx, Version)
		if err != nil {
			return errors.Wrap(err, "HomeKit server stopped")
		}
		return nil
	}

	log.Info("HomeKit not configured, disabled")
	<-ctx.Done()
	return nil
}
