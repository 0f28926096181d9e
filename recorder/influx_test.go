package recorder

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestInfluxSetupValidation(t *testing.T) {
	cases := map[string]*Influx{
		"no host":   {Organization: "home", Bucket: "fans"},
		"no org":    {Host: "http://localhost:8086", Bucket: "fans"},
		"no bucket": {Host: "http://localhost:8086", Organization: "home"},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if err := in.Setup(); err == nil {
				t.Error("expected error")
			}
			if in.IsReady() {
				t.Error("recorder should not be ready")
			}
		})
	}
}

func TestInfluxPoint(t *testing.T) {
	in := Influx{}
	p := in.Point(map[string]string{"fan": "crestron_fan_living"}, map[string]interface{}{"percentage": 50}, time.Now())
	if p.Name() != "fan" {
		t.Errorf("got measurement %s want fan", p.Name())
	}

	in.Measurement = "ceiling_fans"
	p = in.Point(nil, map[string]interface{}{"on": true}, time.Now())
	if p.Name() != "ceiling_fans" {
		t.Errorf("got measurement %s want ceiling_fans", p.Name())
	}
}

func TestInfluxRecordNotReady(t *testing.T) {
	in := Influx{}
	in.Record(map[string]string{"fan": "x"}, map[string]interface{}{"on": false})

	if err := in.Close(); err != nil {
		t.Errorf("Close returned err: %v", err)
	}
}

func TestInfluxRecordWhileClosing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	in := &Influx{Host: ts.URL, Organization: "home", Bucket: "fans", Token: "token"}
	if err := in.Setup(); err != nil {
		t.Fatalf("Setup returned err: %v", err)
	}

	wg := sync.WaitGroup{}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				in.Record(map[string]string{"fan": "crestron_fan_living"}, map[string]interface{}{"percentage": i * n})
			}
		}(i)
	}

	if err := in.Close(); err != nil {
		t.Errorf("Close returned err: %v", err)
	}
	wg.Wait()

	if in.IsReady() {
		t.Error("recorder still ready after close")
	}
	in.Record(map[string]string{"fan": "x"}, map[string]interface{}{"on": false})
}
