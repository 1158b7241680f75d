package main

import (
	"testing"
	"time"

	"github.com/cwbudde/bfgsmin/internal/store"
)

func makeRunInfos(ages ...time.Duration) []store.RunInfo {
	now := time.Now()
	infos := make([]store.RunInfo, len(ages))
	for i, age := range ages {
		infos[i] = store.RunInfo{
			RunID:   string(rune('a' + i)),
			Problem: "parabola",
			EndTime: now.Add(-age),
		}
	}
	return infos
}

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	infos := makeRunInfos(
		1*time.Hour,
		48*time.Hour,
		10*24*time.Hour,
	)

	toDelete := selectRunsForDeletion(infos, 0, 7)

	if len(toDelete) != 1 {
		t.Fatalf("expected 1 run to delete, got %d", len(toDelete))
	}
	if toDelete[0].RunID != infos[2].RunID {
		t.Errorf("expected oldest run selected, got %s", toDelete[0].RunID)
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	infos := makeRunInfos(
		1*time.Hour,
		2*time.Hour,
		3*time.Hour,
		4*time.Hour,
	)

	toDelete := selectRunsForDeletion(infos, 2, 0)

	if len(toDelete) != 2 {
		t.Fatalf("expected 2 runs to delete, got %d", len(toDelete))
	}
	// The two oldest must go, the two newest stay.
	wantGone := map[string]bool{infos[2].RunID: true, infos[3].RunID: true}
	for _, info := range toDelete {
		if !wantGone[info.RunID] {
			t.Errorf("unexpected run selected for deletion: %s", info.RunID)
		}
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	infos := makeRunInfos(
		1*time.Hour,
		2*time.Hour,
		10*24*time.Hour,
	)

	// Age cutoff already selects the 10-day run; keep-last=1 additionally
	// selects the 2-hour run, without double-counting.
	toDelete := selectRunsForDeletion(infos, 1, 7)

	if len(toDelete) != 2 {
		t.Fatalf("expected 2 runs to delete, got %d", len(toDelete))
	}
}

func TestSelectRunsForDeletion_KeepAll(t *testing.T) {
	infos := makeRunInfos(1*time.Hour, 2*time.Hour)

	if toDelete := selectRunsForDeletion(infos, 5, 0); len(toDelete) != 0 {
		t.Errorf("expected nothing to delete, got %d", len(toDelete))
	}
	if toDelete := selectRunsForDeletion(infos, 0, 30); len(toDelete) != 0 {
		t.Errorf("expected nothing to delete, got %d", len(toDelete))
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
	}

	for _, tc := range cases {
		if got := formatBytes(tc.bytes); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}

func TestParseVector(t *testing.T) {
	v, err := parseVector("1.5, -2,0.25")
	if err != nil {
		t.Fatalf("parseVector failed: %v", err)
	}
	want := []float64{1.5, -2, 0.25}
	if len(v) != len(want) {
		t.Fatalf("expected %d components, got %d", len(want), len(v))
	}
	for i := range want {
		if v[i] != want[i] {
			t.Errorf("component %d: got %v, want %v", i, v[i], want[i])
		}
	}

	if _, err := parseVector("1.5,abc"); err == nil {
		t.Error("expected error for non-numeric component")
	}
}

func TestFormatVector(t *testing.T) {
	got := formatVector([]float64{3, -1})
	if got != "[3, -1]" {
		t.Errorf("formatVector = %q, want %q", got, "[3, -1]")
	}
}
