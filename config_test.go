package fankit

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const testJsonConfig = `{
	"name": "attic",
	"hk_pin": "12344321",
	"mock": {},
	"fans": [
		{"name": "Living Room", "speed_join": 10, "speed_steps": 4, "reverse_join": 11, "platform": "crestron"},
		{"name": "Bedroom", "speed_join": 12, "icon": "mdi:fan"}
	],
	"unused_section": {"a": 1}
}`

const testYamlConfig = `
name: attic
mqtt_broker: mqtt://localhost:1883
gpio:
  pwm_frequency: 200
  expander:
    bus_no: 1
    dev_no: 0
influx:
  host: http://localhost:8086
  organization: home
  bucket: fans
fans:
  - name: Porch
    speed_join: 18
    reverse_join: 23
    friendly_name: ignored
`

func TestParseConfig(t *testing.T) {
	Convey("json config with extra keys", t, func() {
		fk, err := ParseConfig([]byte(testJsonConfig), ".json")
		So(err, ShouldBeNil)
		So(fk.Mock, ShouldNotBeNil)
		So(fk.HkPin, ShouldEqual, "12344321")

		Convey("fans are parsed", func() {
			So(fk.Fans, ShouldHaveLength, 2)
			So(fk.Fans[0].Name, ShouldEqual, "Living Room")
			So(*fk.Fans[0].SpeedSteps, ShouldEqual, 4)
			So(*fk.Fans[0].ReverseJoin, ShouldEqual, 11)
			So(fk.Fans[1].SpeedSteps, ShouldBeNil)
			So(fk.Fans[1].ReverseJoin, ShouldBeNil)
		})
	})

	Convey("yaml config", t, func() {
		fk, err := ParseConfig([]byte(testYamlConfig), ".yaml")
		So(err, ShouldBeNil)
		So(fk.MqttBroker, ShouldEqual, "mqtt://localhost:1883")
		So(fk.Gpio, ShouldNotBeNil)
		So(fk.Gpio.PwmFrequency, ShouldEqual, 200)
		So(fk.Gpio.Expander.BusNo, ShouldEqual, 1)
		So(fk.Influx.Bucket, ShouldEqual, "fans")
		So(fk.Fans[0].SpeedJoin, ShouldEqual, 18)
		So(*fk.Fans[0].ReverseJoin, ShouldEqual, 23)
	})

	Convey("invalid configs are rejected", t, func() {
		invalid := map[string]string{
			"no fans":           `{"mock": {}}`,
			"no hub":            `{"fans": [{"name": "a", "speed_join": 1}]}`,
			"missing name":      `{"mock": {}, "fans": [{"speed_join": 1}]}`,
			"missing join":      `{"mock": {}, "fans": [{"name": "a"}]}`,
			"negative steps":    `{"mock": {}, "fans": [{"name": "a", "speed_join": 1, "speed_steps": -2}]}`,
			"zero reverse join": `{"mock": {}, "fans": [{"name": "a", "speed_join": 1, "reverse_join": 0}]}`,
			"duplicated fan":    `{"mock": {}, "fans": [{"name": "a b", "speed_join": 1}, {"name": "A-B", "speed_join": 2}]}`,
			"broken json":       `{"mock": `,
		}

		for name, content := range invalid {
			Convey(name, func() {
				_, err := ParseConfig([]byte(content), ".json")
				So(err, ShouldNotBeNil)
			})
		}
	})
}

func TestLoadConfig(t *testing.T) {
	Convey("config file is read by extension", t, func() {
		dir := t.TempDir()

		jsonPath := filepath.Join(dir, "config.json")
		So(os.WriteFile(jsonPath, []byte(testJsonConfig), 0o600), ShouldBeNil)
		fk, err := LoadConfig(jsonPath)
		So(err, ShouldBeNil)
		So(fk.Fans, ShouldHaveLength, 2)

		yamlPath := filepath.Join(dir, "config.yml")
		So(os.WriteFile(yamlPath, []byte(testYamlConfig), 0o600), ShouldBeNil)
		fk, err = LoadConfig(yamlPath)
		So(err, ShouldBeNil)
		So(fk.Fans, ShouldHaveLength, 1)

		_, err = LoadConfig(filepath.Join(dir, "missing.json"))
		So(err, ShouldNotBeNil)
	})
}
