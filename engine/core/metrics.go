package core

import "sync"

const AVG_COUNT uint8 = 30

type MetricsState struct {
	LoadAVGCounter    uint8
	MStimes           [AVG_COUNT]float64
	MSavg             float64
	Loads             int32
	AccumulatedLoadMS float64
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{
			MStimes: [AVG_COUNT]float64{0},
		}
	})
	return nil
}

// MetricsRecordLoad folds one asset-load duration (in ms) into the
// rolling average.
func MetricsRecordLoad(load_elapsed_ms float64) {
	if metricsState == nil {
		return
	}
	metricsState.MStimes[metricsState.LoadAVGCounter] = load_elapsed_ms
	if metricsState.LoadAVGCounter == AVG_COUNT-1 {
		total := 0.0
		for i := uint8(0); i < AVG_COUNT; i++ {
			total += metricsState.MStimes[i]
		}
		metricsState.MSavg = total / float64(AVG_COUNT)
	}
	metricsState.LoadAVGCounter = (metricsState.LoadAVGCounter + 1) % AVG_COUNT
	metricsState.Loads++
	metricsState.AccumulatedLoadMS += load_elapsed_ms
}

// MetricsLoadAverageMS returns the rolling average load time in ms.
func MetricsLoadAverageMS() float64 {
	if metricsState == nil {
		return 0
	}
	return metricsState.MSavg
}

// MetricsLoadCount returns the total number of recorded loads.
func MetricsLoadCount() int32 {
	if metricsState == nil {
		return 0
	}
	return metricsState.Loads
}
