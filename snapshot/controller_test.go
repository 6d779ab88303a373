package snapshot

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// newTestController builds a Controller with a buffer as its protocol
// output so tests can assert on exact text, mirroring serf_test.go's
// bare-testing.T style (no assertion library) for the protocol core.
func newTestController() (*Controller, *bytes.Buffer) {
	var out bytes.Buffer
	c := NewController(&out, nil)
	return c, &out
}

// scenario 1: single transfer (spec.md §8).
func TestScenario_SingleTransfer(t *testing.T) {
	c, _ := newTestController()
	c.StartMaster()
	if err := c.CreateNode(1, 100); err != nil {
		t.Fatalf("CreateNode 1: %v", err)
	}
	if err := c.CreateNode(2, 50); err != nil {
		t.Fatalf("CreateNode 2: %v", err)
	}
	if err := c.Send(1, 2, 30); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := c.Receive(2, 1); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	bal1, _ := c.Balance(1)
	bal2, _ := c.Balance(2)
	if bal1 != 70 {
		t.Errorf("node 1 balance = %d, want 70", bal1)
	}
	if bal2 != 80 {
		t.Errorf("node 2 balance = %d, want 80", bal2)
	}

	if c.nodes[1].outgoing[2].nonEmpty() || c.nodes[2].outgoing[1].nonEmpty() {
		t.Errorf("expected all channels empty")
	}
}

// scenario 2: overdraft (spec.md §8).
func TestScenario_Overdraft(t *testing.T) {
	c, out := newTestController()
	c.StartMaster()
	c.CreateNode(1, 10)
	c.CreateNode(2, 10)

	if err := c.Send(1, 2, 20); err == nil {
		t.Fatalf("expected Send to fail")
	}

	if !strings.Contains(out.String(), "ERR_SEND") {
		t.Errorf("expected ERR_SEND in output, got %q", out.String())
	}
	bal1, _ := c.Balance(1)
	bal2, _ := c.Balance(2)
	if bal1 != 10 || bal2 != 10 {
		t.Errorf("balances changed on overdraft: %d/%d", bal1, bal2)
	}
}

// scenario 3: basic snapshot, no in-flight money (spec.md §8).
func TestScenario_BasicSnapshot(t *testing.T) {
	c, out := newTestController()
	c.StartMaster()
	c.CreateNode(1, 100)
	c.CreateNode(2, 100)

	c.BeginSnapshot(1)
	c.ReceiveAll()
	if err := c.CollectState(); err != nil {
		t.Fatalf("CollectState: %v", err)
	}
	c.PrintSnapshot()

	got := out.String()
	want := []string{
		"Started by Node 1",
		"node 1 = 100",
		"node 2 = 100",
		"channel (1 -> 2) = 0",
		"channel (2 -> 1) = 0",
	}
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("output missing %q, got:\n%s", w, got)
		}
	}
}

// scenario 4: snapshot with in-flight money (spec.md §8).
func TestScenario_SnapshotWithInFlight(t *testing.T) {
	c, out := newTestController()
	c.StartMaster()
	c.CreateNode(1, 100)
	c.CreateNode(2, 50)

	if err := c.Send(1, 2, 40); err != nil {
		t.Fatalf("Send: %v", err)
	}
	c.BeginSnapshot(1)
	c.ReceiveAll()
	if err := c.CollectState(); err != nil {
		t.Fatalf("CollectState: %v", err)
	}
	c.PrintSnapshot()

	got := out.String()
	// node 2 has only one peer, so the very Marker that would close
	// channel (1 -> 2) is also the only thing that can ever start node 2
	// recording on it (start-recording rule, spec.md §4.2c); by FIFO the
	// Transfer(40) ahead of that Marker is always dequeued first and
	// folded into node 2's recorded balance rather than channel_state.
	// This keeps the Marker Causality invariant (spec.md §8): a Transfer
	// can only be recorded in channel_states[(a,b)] if b dequeued it
	// strictly after starting to record on that channel, which is
	// impossible for the channel whose own Marker is what starts b's
	// recording.
	want := []string{
		"node 1 = 60",
		"node 2 = 90",
		"channel (1 -> 2) = 0",
		"channel (2 -> 1) = 0",
	}
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("output missing %q, got:\n%s", w, got)
		}
	}
}

// scenario 5: snapshot captures only pre-marker sends (spec.md §8).
func TestScenario_SnapshotPreMarkerOnly(t *testing.T) {
	c, out := newTestController()
	c.StartMaster()
	c.CreateNode(1, 100)
	c.CreateNode(2, 100)
	c.CreateNode(3, 100)

	if err := c.Send(1, 2, 10); err != nil {
		t.Fatalf("Send 1->2: %v", err)
	}
	c.BeginSnapshot(1)
	if err := c.Send(1, 3, 5); err != nil {
		t.Fatalf("Send 1->3: %v", err)
	}
	c.ReceiveAll()
	if err := c.CollectState(); err != nil {
		t.Fatalf("CollectState: %v", err)
	}
	c.PrintSnapshot()

	got := out.String()
	// The Send(1,3,5) command runs after BeginSnapshot(1), so node 1's
	// marker on (1 -> 3) is already enqueued ahead of it: the transfer
	// must not be recorded. (channel (1 -> 2) is not asserted here: which
	// node first sees node 1's marker on a channel it didn't send the
	// marker on determines whether a pre-marker transfer lands in that
	// node's recorded balance or its channel state, and spec.md leaves
	// selection among non-empty channels unspecified — either placement
	// keeps the Marker Causality invariant and conservation intact.)
	if !strings.Contains(got, "channel (1 -> 3) = 0") {
		t.Errorf("expected channel (1 -> 3) = 0, got:\n%s", got)
	}

	total := 0
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "node ") {
			var id, bal int
			if _, err := fmt.Sscanf(line, "node %d = %d", &id, &bal); err == nil {
				total += bal
			}
		}
	}
	if total != 300 {
		t.Errorf("recorded node-state total = %d, want 300", total)
	}
}

// scenario 6: a second BeginSnapshot while one is in progress is a no-op
// (spec.md §8).
func TestScenario_ConcurrentSnapshotRejected(t *testing.T) {
	c, out := newTestController()
	c.StartMaster()
	c.CreateNode(1, 100)
	c.CreateNode(2, 100)

	c.BeginSnapshot(1) // node 1 consumes TakeSnapshot, prints "Started by Node 1"
	c.ReceiveAll()
	c.BeginSnapshot(2)
	c.ReceiveAll()

	count := strings.Count(out.String(), "Started by Node")
	if count != 1 {
		t.Errorf("expected exactly one \"Started by Node\" line, got %d in:\n%s", count, out.String())
	}
	if strings.Contains(out.String(), "Started by Node 2") {
		t.Errorf("second BeginSnapshot must not start a new round")
	}
}

// TestMarkerCausality checks the unhedged invariant from spec.md §8
// directly: an in-flight Transfer can be legitimately recorded in a
// channel_state when the recording side is the snapshot *initiator*,
// since start-recording's "close the triggering channel at 0" exception
// (spec.md §4.2c) only ever applies to a marker-triggered start, never
// to the initiator itself (every one of its incoming peer channels opens
// for recording with no exception). This is the case
// TestScenario_SnapshotWithInFlight cannot exercise, because there the
// recording side is the non-initiator two-node receiver.
func TestMarkerCausality(t *testing.T) {
	c, out := newTestController()
	c.StartMaster()
	c.CreateNode(1, 100)
	c.CreateNode(2, 100)
	c.CreateNode(3, 100)

	// node 3 sends to the initiator before node 3 has even seen node 1's
	// marker, so the Transfer is enqueued on (3 -> 1) ahead of node 3's
	// own outgoing Marker there, and node 1 (already recording on every
	// incoming channel since BeginSnapshot) dequeues it while
	// recording[3] is still true.
	if err := c.Send(3, 1, 15); err != nil {
		t.Fatalf("Send 3->1: %v", err)
	}
	c.BeginSnapshot(1)
	c.ReceiveAll()
	if err := c.CollectState(); err != nil {
		t.Fatalf("CollectState: %v", err)
	}
	c.PrintSnapshot()

	got := out.String()
	if !strings.Contains(got, "channel (3 -> 1) = 15") {
		t.Errorf("expected channel (3 -> 1) = 15, got:\n%s", got)
	}

	total := 0
	for _, line := range strings.Split(got, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		var v int
		if _, err := fmt.Sscanf(fields[len(fields)-1], "%d", &v); err != nil {
			continue
		}
		if strings.HasPrefix(line, "node ") || strings.HasPrefix(line, "channel ") {
			total += v
		}
	}
	if total != 300 {
		t.Errorf("recorded total (nodes + channels) = %d, want 300", total)
	}
}
