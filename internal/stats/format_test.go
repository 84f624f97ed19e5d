package stats

import (
	"math"
	"testing"
)

func TestFormatPacketRate(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0.00pps"},
		{999.994, "999.99pps"},
		{1000, "1.00Kpps"},
		{2000, "2.00Kpps"},
		{999999, "1000.00Kpps"},
		{1000000, "1.00Mpps"},
		{14880952, "14.88Mpps"},
	}

	for _, tt := range tests {
		if got := FormatPacketRate(tt.input); got != tt.expected {
			t.Errorf("FormatPacketRate(%v) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatByteRate(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0.00B/s"},
		{512, "512.00B/s"},
		{1000, "1.00KB/s"},
		{150000, "150.00KB/s"},
		{1000000, "1.00MB/s"},
		{125000000, "125.00MB/s"},
		{1000000000, "1.00GB/s"},
		{12500000000, "12.50GB/s"},
	}

	for _, tt := range tests {
		if got := FormatByteRate(tt.input); got != tt.expected {
			t.Errorf("FormatByteRate(%v) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatAverage(t *testing.T) {
	if got := FormatAverage(12.345); got != "12.35" && got != "12.34" {
		t.Errorf("FormatAverage(12.345) = %q", got)
	}
	if got := FormatAverage(math.NaN()); got != "n/a" {
		t.Errorf("FormatAverage(NaN) = %q, expected n/a", got)
	}
	if got := FormatAverage(math.Inf(1)); got != "n/a" {
		t.Errorf("FormatAverage(+Inf) = %q, expected n/a", got)
	}
}
