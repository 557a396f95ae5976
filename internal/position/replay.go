package position

import (
	"encoding/xml"
	"os"
	"sync"
	"time"
)

// Replay is a Source that feeds a pre-recorded trace at a fixed interval.
// Used by the replay harness and as the scripted source in tests.
type Replay struct {
	samples  []Sample
	interval time.Duration

	mu   sync.Mutex
	subs map[*replaySub]struct{}
	done chan struct{}
	once sync.Once
}

func NewReplay(samples []Sample, interval time.Duration) *Replay {
	return &Replay{
		samples:  samples,
		interval: interval,
		subs:     map[*replaySub]struct{}{},
		done:     make(chan struct{}),
	}
}

// Done is closed once the full trace has been delivered to the subscriber.
func (r *Replay) Done() <-chan struct{} {
	return r.done
}

func (r *Replay) Watch(onSample func(Sample), onError func(error), _ WatchOptions) (Subscription, error) {
	sub := &replaySub{
		replay: r,
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	go func() {
		defer close(sub.exited)
		for _, s := range r.samples {
			select {
			case <-sub.stop:
				return
			case <-time.After(r.interval):
			}
			select {
			case <-sub.stop:
				return
			default:
				onSample(s)
			}
		}
		r.once.Do(func() { close(r.done) })
	}()
	return sub, nil
}

type replaySub struct {
	replay   *Replay
	stop     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// Cancel waits for the emit goroutine to exit, so no sample callback fires
// after it returns.
func (s *replaySub) Cancel() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.exited

	s.replay.mu.Lock()
	delete(s.replay.subs, s)
	s.replay.mu.Unlock()
}

type gpxFile struct {
	XMLName xml.Name `xml:"gpx"`
	Tracks  []struct {
		Segments []struct {
			Points []gpxPoint `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

type gpxPoint struct {
	Lat       float64   `xml:"lat,attr"`
	Lon       float64   `xml:"lon,attr"`
	Elevation float64   `xml:"ele"`
	Time      time.Time `xml:"time"`
}

// LoadGPX reads all track points of a GPX 1.1 file in document order. GPX
// carries no accuracy estimate, so loaded samples are trusted.
func LoadGPX(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc gpxFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var samples []Sample
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, pt := range seg.Points {
				samples = append(samples, Sample{
					Lat:        pt.Lat,
					Lng:        pt.Lon,
					AltitudeM:  pt.Elevation,
					RecordedAt: pt.Time,
				})
			}
		}
	}
	return samples, nil
}
