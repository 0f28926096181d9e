package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hubertat/fankit"
	"github.com/hubertat/fankit/api"
	"github.com/hubertat/fankit/entity"
	"github.com/hubertat/fankit/hub"
)

func setupServer(t *testing.T) (*api.Server, *hub.MockHub) {
	t.Helper()

	mh := &hub.MockHub{}
	mh.Setup(context.Background(), []uint16{10}, []uint16{11})

	steps := 4
	reverse := 11
	fan, err := fankit.NewFan(fankit.FanConfig{
		Name:           "Living Room",
		SpeedJoin:      10,
		SpeedSteps:     &steps,
		ReverseJoin:    &reverse,
		DisableHomekit: true,
	}, mh)
	if err != nil {
		t.Fatalf("NewFan returned err: %v", err)
	}

	return api.NewServer(":0", []entity.Entity{fan}), mh
}

func doRequest(t *testing.T, s *api.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) entity.State {
	t.Helper()

	st := entity.State{}
	err := json.NewDecoder(rec.Body).Decode(&st)
	if err != nil {
		t.Fatalf("failed to decode state: %v", err)
	}
	return st
}

func TestListFans(t *testing.T) {
	s, _ := setupServer(t)

	rec := doRequest(t, s, http.MethodGet, "/fans", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}

	states := []entity.State{}
	json.NewDecoder(rec.Body).Decode(&states)
	if len(states) != 1 || states[0].UniqueId != "crestron_fan_living_room" {
		t.Errorf("unexpected states %+v", states)
	}
}

func TestGetFan(t *testing.T) {
	s, mh := setupServer(t)
	mh.SetAnalog(10, 32768)

	rec := doRequest(t, s, http.MethodGet, "/fans/crestron_fan_living_room", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}

	st := decodeState(t, rec)
	if !st.On || st.Percentage != 50 || st.SpeedCount != 4 || st.Direction != entity.Forward {
		t.Errorf("unexpected state %+v", st)
	}

	rec = doRequest(t, s, http.MethodGet, "/fans/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d want 404", rec.Code)
	}
}

func TestCommandFan(t *testing.T) {
	s, mh := setupServer(t)

	rec := doRequest(t, s, http.MethodPost, "/fans/crestron_fan_living_room", `{"state":"ON","direction":"reverse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	st := decodeState(t, rec)
	if st.Percentage != 25 || st.Direction != entity.Reverse {
		t.Errorf("unexpected state %+v", st)
	}
	if mh.GetAnalog(10) != 16384 || !mh.GetDigital(11) {
		t.Errorf("hub got analog %d digital %v", mh.GetAnalog(10), mh.GetDigital(11))
	}

	rec = doRequest(t, s, http.MethodPost, "/fans/crestron_fan_living_room", `{"state":"OFF"}`)
	st = decodeState(t, rec)
	if st.On || mh.GetAnalog(10) != 0 {
		t.Errorf("fan still on: %+v", st)
	}
}

func TestCommandFanErrors(t *testing.T) {
	s, mh := setupServer(t)

	cases := map[string]string{
		"bad json":      `{"state":`,
		"bad state":     `{"state":"spin"}`,
		"bad direction": `{"direction":"up"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/fans/crestron_fan_living_room", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("got status %d want 400", rec.Code)
			}
		})
	}

	if len(mh.Writes()) != 0 {
		t.Errorf("rejected commands wrote to hub: %+v", mh.Writes())
	}
}
