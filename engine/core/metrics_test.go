package core

import "testing"

func TestMetricsRollingAverage(t *testing.T) {
	if err := MetricsInitialize(); err != nil {
		t.Fatal(err)
	}

	before := MetricsLoadCount()
	for i := uint8(0); i < AVG_COUNT; i++ {
		MetricsRecordLoad(10)
	}
	if got := MetricsLoadCount(); got != before+int32(AVG_COUNT) {
		t.Errorf("load count = %d, want %d", got, before+int32(AVG_COUNT))
	}
	if avg := MetricsLoadAverageMS(); avg != 10 {
		t.Errorf("rolling average = %v, want 10", avg)
	}
}
