package snapshot

import (
	"fmt"
	"io"

	radix "github.com/armon/go-radix"
	"github.com/pkg/errors"
)

// Observer is the singleton coordinator described in spec.md §4.3. It
// starts a snapshot at a chosen initiator, collects recorded fragments from
// every node, and emits the collected global state when printSnapshot is
// called (whether or not every node has reported by then).
//
// Observer is grounded on serf/snapshot.go's Snapshotter: same
// ingest-accumulate-emit lifecycle, entirely repurposed from disk
// persistence to Chandy-Lamport collection. nodeStates and channelStates
// are held in a radix.Tree rather than a plain map so PrintSnapshot can walk
// them in ascending key order directly instead of sorting by hand; keys are
// zero-padded so lexicographic tree order equals numeric order.
type Observer struct {
	nodeStates    *radix.Tree
	channelStates *radix.Tree

	sawNodeState    map[int]bool
	sawChannelState map[int]bool

	inProgress  bool
	initiatorID int
}

func newObserver() *Observer {
	return &Observer{
		nodeStates:      radix.New(),
		channelStates:   radix.New(),
		sawNodeState:    make(map[int]bool),
		sawChannelState: make(map[int]bool),
	}
}

// snapshotInProgress reports whether a snapshot is currently underway.
func (o *Observer) snapshotInProgress() bool {
	return o.inProgress
}

// beginSnapshot implements spec.md §4.3's begin_snapshot. It returns false
// (a no-op) if a snapshot is already in progress, enforcing the
// at-most-one-concurrent-snapshot invariant (spec.md §1).
func (o *Observer) beginSnapshot(initiatorID int) bool {
	if o.inProgress {
		return false
	}
	o.inProgress = true
	o.initiatorID = initiatorID
	return true
}

// ingest folds one reported fragment (a NodeState or ChannelState message
// dequeued from nodeID's node->observer channel) into the in-progress
// collection. It is the building block of collect_state (spec.md §4.3).
func (o *Observer) ingest(nodeID int, m message) error {
	switch m.typ {
	case messageNodeStateType:
		o.nodeStates.Insert(nodeKey(nodeID), m.balance)
		o.sawNodeState[nodeID] = true
	case messageChannelStateType:
		for src, amount := range m.channelState {
			o.channelStates.Insert(channelKey(src, nodeID), amount)
		}
		o.sawChannelState[nodeID] = true
	default:
		return errors.Wrapf(ErrProtocolViolation, "observer: unexpected message %s from node %d", m.typ, nodeID)
	}
	return nil
}

// checkComplete marks the snapshot finished once every node named in
// nodeIDs has reported a NodeState and a ChannelState fragment, per
// spec.md §4.3's monotonic completion rule. Only the presence of each
// fragment is checked; a repeated fragment is not detected.
func (o *Observer) checkComplete(nodeIDs []int) {
	if !o.inProgress {
		return
	}
	for _, id := range nodeIDs {
		if !o.sawNodeState[id] || !o.sawChannelState[id] {
			return
		}
	}
	o.inProgress = false
}

// printSnapshot implements spec.md §4.3's print_snapshot and the output
// format fixed by spec.md §6: node states in ascending node-id order, then
// channel states in ascending (src, dst) lexicographic order, then both
// maps are cleared.
func (o *Observer) printSnapshot(w io.Writer) {
	fmt.Fprintln(w, "---Node states")
	o.nodeStates.Walk(func(key string, value interface{}) bool {
		fmt.Fprintf(w, "node %d = %d\n", decodeNodeKey(key), value.(int))
		return false
	})

	fmt.Fprintln(w, "---Channel states")
	o.channelStates.Walk(func(key string, value interface{}) bool {
		src, dst := decodeChannelKey(key)
		fmt.Fprintf(w, "channel (%d -> %d) = %d\n", src, dst, value.(int))
		return false
	})

	o.nodeStates = radix.New()
	o.channelStates = radix.New()
	o.sawNodeState = make(map[int]bool)
	o.sawChannelState = make(map[int]bool)
}

// nodeKey and channelKey zero-pad ids so that radix.Tree's byte-lexical
// iteration order coincides with ascending numeric order, for node ids and
// (src, dst) pairs respectively.
func nodeKey(id int) string {
	return fmt.Sprintf("%010d", id)
}

func decodeNodeKey(key string) int {
	var id int
	fmt.Sscanf(key, "%d", &id)
	return id
}

func channelKey(src, dst int) string {
	return fmt.Sprintf("%010d:%010d", src, dst)
}

func decodeChannelKey(key string) (src, dst int) {
	fmt.Sscanf(key, "%d:%d", &src, &dst)
	return
}
