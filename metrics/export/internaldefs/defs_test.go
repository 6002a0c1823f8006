package internaldefs

import (
	"strings"
	"testing"
)

func TestCounterDefsAreUniqueAndPrefixed(t *testing.T) {
	seenIDs := map[uint16]bool{}
	seenNames := map[string]bool{}
	for _, def := range CounterDefs {
		if seenIDs[uint16(def.ID)] {
			t.Fatalf("duplicate metric id %d", def.ID)
		}
		if seenNames[def.Name] {
			t.Fatalf("duplicate metric name %s", def.Name)
		}
		seenIDs[uint16(def.ID)] = true
		seenNames[def.Name] = true

		if !strings.HasPrefix(def.Name, "sessiongate_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %s", def.Name)
		}
		if def.Help == "" {
			t.Fatalf("missing help for %s", def.Name)
		}
	}
}

func TestBucketLayout(t *testing.T) {
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatalf("bounds %d and suffixes %d disagree", len(HistogramUpperBounds), len(HistogramBoundSuffix))
	}
	for i := 1; i < len(HistogramUpperBounds); i++ {
		if HistogramUpperBounds[i] <= HistogramUpperBounds[i-1] {
			t.Fatalf("bounds not increasing at %d", i)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2, 0, 0, 0, 0, 3}))
	want := [8]uint64{1, 1, 3, 3, 3, 3, 3, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if short := NormalizeBuckets([]uint64{4}); short[0] != 4 || short[7] != 0 {
		t.Fatalf("unexpected normalized %v", short)
	}
}
