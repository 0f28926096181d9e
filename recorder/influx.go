package recorder

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
)

const defaultMeasurement = "fan"

// Influx writes fan state points to an InfluxDB 2 bucket. Writes are batched
// in the background; failures are only logged.
type Influx struct {
	Host         string `json:"host" yaml:"host"`
	Organization string `json:"organization" yaml:"organization"`
	Bucket       string `json:"bucket" yaml:"bucket"`
	Measurement  string `json:"measurement" yaml:"measurement"`
	Token        string `json:"token" yaml:"token"`

	client   influxdb2.Client
	writeApi api.WriteAPI
	logger   *log.Logger
	ready    bool
	lock     sync.RWMutex
}

func (in *Influx) validate() error {
	if len(in.Host) == 0 {
		return errors.New("influx host not set")
	}
	if len(in.Organization) == 0 {
		return errors.New("influx organization not set")
	}
	if len(in.Bucket) == 0 {
		return errors.New("influx bucket not set")
	}
	return nil
}

func (in *Influx) measurement() string {
	if len(in.Measurement) > 0 {
		return in.Measurement
	}
	return defaultMeasurement
}

func (in *Influx) Setup() error {
	err := in.validate()
	if err != nil {
		return errors.Wrap(err, "failed to setup influx recorder")
	}

	in.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "Influx: ",
		Level:  log.GetLevel(),
	})

	in.client = influxdb2.NewClient(in.Host, in.Token)
	in.writeApi = in.client.WriteAPI(in.Organization, in.Bucket)

	go func(errs <-chan error) {
		for err := range errs {
			in.logger.Error("failed to write point", "err", err)
		}
	}(in.writeApi.Errors())

	in.lock.Lock()
	in.ready = true
	in.lock.Unlock()
	return nil
}

func (in *Influx) IsReady() bool {
	in.lock.RLock()
	defer in.lock.RUnlock()

	return in.ready
}

func (in *Influx) Point(tags map[string]string, fields map[string]interface{}, ts time.Time) *write.Point {
	return influxdb2.NewPoint(in.measurement(), tags, fields, ts)
}

// Record queues a point; it does not block on the network.
func (in *Influx) Record(tags map[string]string, fields map[string]interface{}) {
	in.lock.RLock()
	defer in.lock.RUnlock()

	if !in.ready {
		return
	}
	in.writeApi.WritePoint(in.Point(tags, fields, time.Now()))
}

func (in *Influx) Close() error {
	in.lock.Lock()
	defer in.lock.Unlock()

	if !in.ready {
		return nil
	}
	in.ready = false
	in.writeApi.Flush()
	in.client.Close()
	return nil
}
