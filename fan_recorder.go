package fankit

import (
	"github.com/hubertat/fankit/entity"
)

// Recorder stores state history, see recorder.Influx.
type Recorder interface {
	Record(tags map[string]string, fields map[string]interface{})
}

type recorderPublisher struct {
	recorder Recorder
}

func (rp *recorderPublisher) PublishState(st entity.State) {
	tags := map[string]string{
		"fan":  st.UniqueId,
		"name": st.Name,
	}
	fields := map[string]interface{}{
		"available":  st.Available,
		"on":         st.On,
		"percentage": st.Percentage,
	}
	if len(st.Direction) > 0 {
		fields["direction"] = string(st.Direction)
	}

	rp.recorder.Record(tags, fields)
}

func (f *Fan) EnableRecorder(r Recorder) {
	f.AddPublisher(&recorderPublisher{recorder: r})
}
