package reefpi

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("Aug-23-19:30, 2021")
	if err != nil {
		t.Fatalf("ParseTimestamp() failed: %v", err)
	}
	want := time.Date(2021, time.August, 23, 19, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTimestamp() = %v, want %v", got, want)
	}

	if _, err := ParseTimestamp("2021-08-23T19:30:00Z"); err == nil {
		t.Error("ParseTimestamp() should reject RFC3339 input")
	}
}

func TestLatestReading_ResortsOutOfOrder(t *testing.T) {
	// Buckets are ordered oldest to newest by construction, but the
	// selection must hold even when entries arrive shuffled.
	readings := Readings{
		Current: []Reading{
			{Value: FlexFloat{Value: 8.24, Valid: true}, Time: "Aug-23-19:30, 2021"},
			{Value: FlexFloat{Value: 8.19, Valid: true}, Time: "Aug-22-19:30, 2021"},
			{Value: FlexFloat{Value: 8.01, Valid: true}, Time: "Aug-21-19:30, 2021"},
		},
	}

	latest, ok := LatestReading(readings)
	if !ok {
		t.Fatal("LatestReading() found no entry")
	}
	if latest.Value.Value != 8.24 {
		t.Errorf("latest value = %v, want 8.24", latest.Value.Value)
	}
}

func TestLatestReading_EmptyBuckets(t *testing.T) {
	if _, ok := LatestReading(Readings{}); ok {
		t.Error("LatestReading() on empty buckets should report no entry")
	}
}

func TestLatestReading_SkipsUnparseableTimestamps(t *testing.T) {
	readings := Readings{
		Historical: []Reading{
			{Value: FlexFloat{Value: 7.5, Valid: true}, Time: "garbage"},
			{Value: FlexFloat{Value: 7.9, Valid: true}, Time: "Aug-20-10:00, 2021"},
		},
	}

	latest, ok := LatestReading(readings)
	if !ok {
		t.Fatal("LatestReading() found no entry")
	}
	if latest.Value.Value != 7.9 {
		t.Errorf("latest value = %v, want 7.9", latest.Value.Value)
	}
}

func TestFlexFloat_Unmarshal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValue float64
		wantValid bool
	}{
		{"number", `8.24`, 8.24, true},
		{"quoted number", `"25.0"`, 25.0, true},
		{"null", `null`, 0, false},
		{"nan string", `"NaN"`, 0, false},
		{"empty string", `""`, 0, false},
		{"non numeric", `"banana"`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexFloat
			if err := f.UnmarshalJSON([]byte(tt.input)); err != nil {
				t.Fatalf("UnmarshalJSON(%s) failed: %v", tt.input, err)
			}
			if f.Valid != tt.wantValid {
				t.Fatalf("valid = %v, want %v", f.Valid, tt.wantValid)
			}
			if f.Valid && f.Value != tt.wantValue {
				t.Errorf("value = %v, want %v", f.Value, tt.wantValue)
			}
		})
	}
}
