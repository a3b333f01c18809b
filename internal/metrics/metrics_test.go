package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetSessionsActive(t *testing.T) {
	SetSessionsActive(3)
	if got := testutil.ToFloat64(SessionsActive); got != 3 {
		t.Errorf("SessionsActive = %v, want 3", got)
	}
	SetSessionsActive(0)
	if got := testutil.ToFloat64(SessionsActive); got != 0 {
		t.Errorf("SessionsActive = %v, want 0", got)
	}
}

func TestRecordMediaIngest(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		duration  time.Duration
	}{
		{"movie", "movie", 2 * time.Second},
		{"audio", "audio", 500 * time.Millisecond},
		{"image", "image", 50 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(MediaIngestDuration.WithLabelValues(tt.mediaType))
			RecordMediaIngest(tt.mediaType, tt.duration)
			after := testutil.ToFloat64(MediaIngestDuration.WithLabelValues(tt.mediaType))
			if after <= before {
				t.Errorf("observation count for %s did not increase", tt.mediaType)
			}
		})
	}
}

func TestRecordEngineRoundTrip(t *testing.T) {
	t.Run("success records no error", func(t *testing.T) {
		before := testutil.ToFloat64(EngineCallErrors.WithLabelValues("load_project", "timeout"))
		RecordEngineRoundTrip("load_project", 100*time.Millisecond, "")
		after := testutil.ToFloat64(EngineCallErrors.WithLabelValues("load_project", "timeout"))
		if after != before {
			t.Errorf("EngineCallErrors changed on success: before=%v after=%v", before, after)
		}
	})

	t.Run("timeout increments error counter", func(t *testing.T) {
		before := testutil.ToFloat64(EngineCallErrors.WithLabelValues("hw_discovery", "timeout"))
		RecordEngineRoundTrip("hw_discovery", 10*time.Second, "timeout")
		after := testutil.ToFloat64(EngineCallErrors.WithLabelValues("hw_discovery", "timeout"))
		if after != before+1 {
			t.Errorf("EngineCallErrors = %v, want %v", after, before+1)
		}
	})

	t.Run("mismatch increments error counter", func(t *testing.T) {
		before := testutil.ToFloat64(EngineCallErrors.WithLabelValues("project_deploy", "mismatch"))
		RecordEngineRoundTrip("project_deploy", 5*time.Millisecond, "mismatch")
		after := testutil.ToFloat64(EngineCallErrors.WithLabelValues("project_deploy", "mismatch"))
		if after != before+1 {
			t.Errorf("EngineCallErrors = %v, want %v", after, before+1)
		}
	})
}

func TestRecordUploadBytes(t *testing.T) {
	before := testutil.ToFloat64(UploadBytesTotal)
	RecordUploadBytes(1024)
	RecordUploadBytes(2048)
	after := testutil.ToFloat64(UploadBytesTotal)
	if after != before+3072 {
		t.Errorf("UploadBytesTotal = %v, want %v", after, before+3072)
	}
}

func TestRecordUploadOutcome(t *testing.T) {
	t.Run("committed", func(t *testing.T) {
		before := testutil.ToFloat64(UploadsCompleted.WithLabelValues("committed"))
		RecordUploadOutcome(true)
		after := testutil.ToFloat64(UploadsCompleted.WithLabelValues("committed"))
		if after != before+1 {
			t.Errorf("UploadsCompleted{committed} = %v, want %v", after, before+1)
		}
	})

	t.Run("failed", func(t *testing.T) {
		before := testutil.ToFloat64(UploadsCompleted.WithLabelValues("failed"))
		RecordUploadOutcome(false)
		after := testutil.ToFloat64(UploadsCompleted.WithLabelValues("failed"))
		if after != before+1 {
			t.Errorf("UploadsCompleted{failed} = %v, want %v", after, before+1)
		}
	})
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	RecordAPIRequest("GET", "/healthz", "200", 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	if after != before+1 {
		t.Errorf("APIRequestsTotal = %v, want %v", after, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("APIActiveRequests after inc = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("APIActiveRequests after dec = %v, want %v", got, before)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			SetSessionsActive(1)
		}()
		go func() {
			defer wg.Done()
			RecordMediaIngest("audio", time.Millisecond)
		}()
		go func() {
			defer wg.Done()
			RecordEngineRoundTrip("hw_discovery", time.Millisecond, "")
		}()
		go func() {
			defer wg.Done()
			RecordUploadBytes(16)
		}()
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint failed: %v", err)
	}
	for _, p := range problems {
		t.Errorf("metric lint problem: %s: %s", p.Metric, p.Text)
	}
}
