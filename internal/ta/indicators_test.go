package ta

import (
	"math"
	"testing"
)

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 || std != 2 {
		t.Fatalf("expected mean 5 std 2, got %f %f", mean, std)
	}
	if m, s := MeanStd(nil); m != 0 || s != 0 {
		t.Fatalf("empty input should be zero, got %f %f", m, s)
	}
}

func TestSMA(t *testing.T) {
	if got := SMA([]float64{1, 2, 3, 4}, 2); got != 3.5 {
		t.Fatalf("expected 3.5, got %f", got)
	}
	if !math.IsNaN(SMA([]float64{1}, 2)) {
		t.Fatal("expected NaN for short input")
	}
}

func TestRSISeriesBounds(t *testing.T) {
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(100 + i)
	}
	if got := Last(RSISeries(rising, 14)); got != 100 {
		t.Fatalf("monotonic rise should give RSI 100, got %f", got)
	}

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = float64(200 - i)
	}
	if got := Last(RSISeries(falling, 14)); got != 0 {
		t.Fatalf("monotonic fall should give RSI 0, got %f", got)
	}

	flat := []float64{5, 5, 5, 5, 5}
	if got := Last(RSISeries(flat, 3)); got != 50 {
		t.Fatalf("flat series should give RSI 50, got %f", got)
	}

	if RSISeries([]float64{1, 2}, 14) != nil {
		t.Fatal("expected nil for insufficient closes")
	}
}

func TestMACDSeriesSign(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	line, signal := MACDSeries(values, 12, 26, 9)
	if Last(line) <= 0 {
		t.Fatalf("uptrend should give positive MACD, got %f", Last(line))
	}
	if Last(line)-Last(signal) <= 0 {
		t.Fatalf("accelerating MACD should sit above signal: %f vs %f", Last(line), Last(signal))
	}
}

func TestClamp(t *testing.T) {
	if Clamp(150, 0, 100) != 100 || Clamp(-1, 0, 100) != 0 || Clamp(math.NaN(), 0, 100) != 0 {
		t.Fatal("clamp misbehaves")
	}
}
