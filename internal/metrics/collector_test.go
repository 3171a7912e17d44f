package metrics

import (
	"testing"
	"time"
)

func TestRecordTimingAggregates(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpLLMGenerate, 100*time.Millisecond)
	c.RecordTiming(OpLLMGenerate, 300*time.Millisecond)

	snap := c.Snapshot()
	op, ok := snap.Operations[OpLLMGenerate]
	if !ok {
		t.Fatalf("Expected llm_generate in snapshot")
	}
	if op.Count != 2 {
		t.Errorf("Expected count 2, got %d", op.Count)
	}
	if op.MinTimeMs != 100 || op.MaxTimeMs != 300 {
		t.Errorf("Expected min 100 / max 300, got %d / %d", op.MinTimeMs, op.MaxTimeMs)
	}
	if op.AvgTimeMs != 200 {
		t.Errorf("Expected avg 200, got %v", op.AvgTimeMs)
	}
}

func TestCountUntimedOperations(t *testing.T) {
	c := NewCollector()
	c.Record(OpConfirmKeyword)
	c.Record(OpConfirmKeyword)
	c.Record(OpConfirmKeyword)

	if got := c.Count(OpConfirmKeyword); got != 3 {
		t.Errorf("Expected count 3, got %d", got)
	}
	if got := c.Count(OpConfirmModel); got != 0 {
		t.Errorf("Expected 0 for unseen op, got %d", got)
	}
}

func TestSnapshotSkipsEmptyOperations(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot()
	if len(snap.Operations) != 0 {
		t.Errorf("Expected empty snapshot, got %v", snap.Operations)
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("Uptime went backwards: %v", snap.UptimeSeconds)
	}
}
