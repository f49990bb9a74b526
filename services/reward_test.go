package services

import "testing"

func intPtr(v int) *int { return &v }

func TestTimeBonusMultiplier(t *testing.T) {
	cases := []struct {
		name      string
		eta       int
		timeSpent *int
		want      float64
	}{
		{"fast solve gets 20 percent", 9, intPtr(100), 1.2},
		{"exactly a third is still fast", 9, intPtr(180), 1.2},
		{"within eta gets 10 percent", 9, intPtr(500), 1.1},
		{"exactly eta still counts", 9, intPtr(540), 1.1},
		{"over eta gets nothing", 9, intPtr(541), 1.0},
		{"missing time gets nothing", 9, nil, 1.0},
		{"zero time gets nothing", 9, intPtr(0), 1.0},
		{"zero eta gets nothing", 0, intPtr(100), 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TimeBonusMultiplier(tc.eta, tc.timeSpent); got != tc.want {
				t.Fatalf("TimeBonusMultiplier(%d, %v) = %v, want %v", tc.eta, tc.timeSpent, got, tc.want)
			}
		})
	}
}

func TestAttemptsMultiplier(t *testing.T) {
	cases := []struct {
		attempts int
		want     float64
	}{
		{0, 1.0},
		{1, 1.0},
		{2, 1.0},
		{3, 0.9},
		{4, 0.9},
		{5, 0.75},
		{6, 0.75},
		{50, 0.75},
	}
	for _, tc := range cases {
		if got := AttemptsMultiplier(tc.attempts); got != tc.want {
			t.Fatalf("AttemptsMultiplier(%d) = %v, want %v", tc.attempts, got, tc.want)
		}
	}
}

func TestComputeAwardedXP(t *testing.T) {
	cases := []struct {
		name      string
		baseXP    int
		eta       int
		timeSpent *int
		attempts  int
		want      int
	}{
		{"fast first try", 100, 9, intPtr(100), 1, 120},
		{"within eta first try", 100, 9, intPtr(500), 1, 110},
		{"fast but six attempts", 100, 9, intPtr(100), 6, 90},
		{"slow and sloppy", 100, 9, intPtr(900), 6, 75},
		{"no timing info", 100, 9, nil, 0, 100},
		{"rounds to nearest", 85, 9, intPtr(100), 3, 92}, // 85 * 1.2 * 0.9 = 91.8
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeAwardedXP(tc.baseXP, tc.eta, tc.timeSpent, tc.attempts)
			if got != tc.want {
				t.Fatalf("ComputeAwardedXP(%d, %d, %v, %d) = %d, want %d",
					tc.baseXP, tc.eta, tc.timeSpent, tc.attempts, got, tc.want)
			}
		})
	}
}
