package position

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestReplayDeliversAllSamples(t *testing.T) {
	samples := []Sample{
		{Lat: 48.8566, Lng: 2.3522},
		{Lat: 48.8567, Lng: 2.3523},
		{Lat: 48.8568, Lng: 2.3524},
	}
	replay := NewReplay(samples, time.Millisecond)

	var mu sync.Mutex
	var got []Sample
	sub, err := replay.Watch(func(s Sample) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	}, nil, WatchOptions{})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer sub.Cancel()

	select {
	case <-replay.Done():
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for replay")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	if got[0] != samples[0] || got[2] != samples[2] {
		t.Fatalf("samples out of order")
	}
}

func TestReplayCancelStopsCallbacks(t *testing.T) {
	samples := make([]Sample, 100)
	replay := NewReplay(samples, time.Millisecond)

	var mu sync.Mutex
	count := 0
	sub, err := replay.Watch(func(Sample) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil, WatchOptions{})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	sub.Cancel()

	mu.Lock()
	after := count
	mu.Unlock()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != after {
		t.Fatalf("callback fired after cancel: %d != %d", count, after)
	}
}

func TestLoadGPX(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>test</name>
    <trkseg>
      <trkpt lat="48.8566" lon="2.3522"><ele>35</ele><time>2024-05-01T08:00:00Z</time></trkpt>
      <trkpt lat="48.8570" lon="2.3530"><ele>36</ele><time>2024-05-01T08:00:05Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

	path := filepath.Join(t.TempDir(), "trace.gpx")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	samples, err := LoadGPX(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Lat != 48.8566 || samples[0].Lng != 2.3522 || samples[0].AltitudeM != 35 {
		t.Fatalf("unexpected first sample: %+v", samples[0])
	}
	if samples[1].RecordedAt.IsZero() {
		t.Fatalf("expected parsed timestamp")
	}
}

func TestLoadGPXMissingFile(t *testing.T) {
	if _, err := LoadGPX(filepath.Join(t.TempDir(), "absent.gpx")); err == nil {
		t.Fatalf("expected error")
	}
}
