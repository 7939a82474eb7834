package notify

import "testing"

func TestQueue_DrainReturnsInOrderAndEmpties(t *testing.T) {
	var q Queue
	q.Success("moved")
	q.Error("boom")

	got := q.Drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 toasts, got %d", len(got))
	}
	if got[0].Level != LevelSuccess || got[0].Message != "moved" {
		t.Fatalf("unexpected first toast: %+v", got[0])
	}
	if got[1].Level != LevelError || got[1].Message != "boom" {
		t.Fatalf("unexpected second toast: %+v", got[1])
	}
	if rest := q.Drain(); len(rest) != 0 {
		t.Fatalf("expected empty queue after drain, got %+v", rest)
	}
}

func TestFanout_ForwardsToEverySink(t *testing.T) {
	var a, b Queue
	f := Fanout{&a, nil, &b}
	f.Error("nope")

	if len(a.Drain()) != 1 || len(b.Drain()) != 1 {
		t.Fatalf("expected both sinks to receive the toast")
	}
}
