package schedule

import (
	"testing"
	"time"
)

func TestWindowContains(t *testing.T) {
	tests := []struct {
		name   string
		window Window
		minute int
		want   bool
	}{
		{"inside plain window", Window{From: 540, To: 1080}, 600, true},
		{"at from is inclusive", Window{From: 540, To: 1080}, 540, true},
		{"at to is exclusive", Window{From: 540, To: 1080}, 1080, false},
		{"before plain window", Window{From: 540, To: 1080}, 539, false},
		{"overnight evening side", Window{From: 1320, To: 360}, 1410, true},
		{"overnight morning side", Window{From: 1320, To: 360}, 120, true},
		{"overnight daytime gap", Window{From: 1320, To: 360}, 600, false},
		{"overnight at from", Window{From: 1320, To: 360}, 1320, true},
		{"overnight at to", Window{From: 1320, To: 360}, 360, false},
		{"degenerate never matches", Window{From: 600, To: 600}, 600, false},
		{"degenerate midnight", Window{From: 0, To: 0}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.window.Contains(tt.minute); got != tt.want {
				t.Errorf("Contains(%d) = %v, want %v", tt.minute, got, tt.want)
			}
		})
	}
}

func TestWindowWraps(t *testing.T) {
	if (Window{From: 540, To: 1080}).Wraps() {
		t.Error("day window should not wrap")
	}
	if !(Window{From: 1320, To: 360}).Wraps() {
		t.Error("overnight window should wrap")
	}
}

func TestMinuteOfDay(t *testing.T) {
	at := time.Date(2026, time.March, 2, 13, 45, 59, 0, time.UTC)
	if got := MinuteOfDay(at); got != 13*60+45 {
		t.Errorf("MinuteOfDay() = %d, want %d", got, 13*60+45)
	}
}
