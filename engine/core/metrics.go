package core

import "sync"

const AVG_COUNT uint8 = 30

// MetricsState accumulates per-frame latency statistics: a sliding-window
// average, the maximum observed latency and the frames-per-second rate.
type MetricsState struct {
	FrameAVGCounter    uint8
	MStimes            [AVG_COUNT]float64
	MSavg              float64
	MSmax              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
}

// MetricsSnapshot is a copy handed to observability consumers.
type MetricsSnapshot struct {
	AverageFrameMS float64
	MaxFrameMS     float64
	FPS            float64
}

var onceMetrics sync.Once
var metricsMutex sync.Mutex
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{
			MStimes: [AVG_COUNT]float64{0},
		}
	})
	return nil
}

func MetricsUpdate(frame_elapsed_time float64) {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	// Calculate frame ms average
	frame_ms := (frame_elapsed_time * 1000.0)
	metricsState.MStimes[metricsState.FrameAVGCounter] = frame_ms
	if metricsState.FrameAVGCounter == AVG_COUNT-1 {
		metricsState.MSavg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			metricsState.MSavg += metricsState.MStimes[i]
		}

		metricsState.MSavg /= float64(AVG_COUNT)
	}
	metricsState.FrameAVGCounter++
	metricsState.FrameAVGCounter %= AVG_COUNT

	if frame_ms > metricsState.MSmax {
		metricsState.MSmax = frame_ms
	}

	// Calculate Frames per second.
	metricsState.AccumulatedFrameMS += frame_ms
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}

	// Count all Frames.
	metricsState.Frames++
}

func MetricsFPS() float64 {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()
	return metricsState.FPS
}

func MetricsFrameTime() float64 {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()
	return metricsState.MSavg
}

func MetricsSnapshotGet() MetricsSnapshot {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()
	return MetricsSnapshot{
		AverageFrameMS: metricsState.MSavg,
		MaxFrameMS:     metricsState.MSmax,
		FPS:            metricsState.FPS,
	}
}
