package track

import (
	"math"
	"sync"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
)

// Sample is one pointing-error observation taken during a tracking session.
type Sample struct {
	// Time is the instant the mount position was read
	Time time.Time `json:"time"`

	// Commanded is where the trajectory says the mount should point
	Commanded coordinates.Horizontal `json:"commanded"`

	// Observed is where the mount reported it was pointing
	Observed coordinates.Horizontal `json:"observed"`

	// AzError and AltError are signed observed-minus-commanded errors in
	// degrees. The azimuth error takes the shorter circular path, so an
	// error across the 0/360° boundary stays small.
	AzError  float64 `json:"azError"`
	AltError float64 `json:"altError"`
}

// Recorder accumulates pointing-error samples. Append-only; recording never
// fails and never disturbs the tracking loop.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one sample comparing the commanded and observed positions
// at time t.
func (r *Recorder) Record(t time.Time, commanded, observed coordinates.Horizontal) {
	s := Sample{
		Time:      t,
		Commanded: commanded,
		Observed:  observed,
		AzError:   coordinates.AzimuthDelta(commanded.Azimuth, observed.Azimuth),
		AltError:  observed.Altitude - commanded.Altitude,
	}
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

// Snapshot returns a copy of all samples recorded so far.
func (r *Recorder) Snapshot() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Len returns the number of samples recorded so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Stats summarizes the recorded pointing errors.
type Stats struct {
	Samples int     `json:"samples"`
	MaxAz   float64 `json:"maxAzError"`
	MaxAlt  float64 `json:"maxAltError"`
	RMSAz   float64 `json:"rmsAzError"`
	RMSAlt  float64 `json:"rmsAltError"`
}

// Stats computes max and RMS error magnitudes over the recorded samples.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Stats{Samples: len(r.samples)}
	if len(r.samples) == 0 {
		return st
	}

	var sumAz, sumAlt float64
	for _, s := range r.samples {
		if a := math.Abs(s.AzError); a > st.MaxAz {
			st.MaxAz = a
		}
		if a := math.Abs(s.AltError); a > st.MaxAlt {
			st.MaxAlt = a
		}
		sumAz += s.AzError * s.AzError
		sumAlt += s.AltError * s.AltError
	}
	st.RMSAz = math.Sqrt(sumAz / float64(len(r.samples)))
	st.RMSAlt = math.Sqrt(sumAlt / float64(len(r.samples)))
	return st
}
