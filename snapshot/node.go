package snapshot

import (
	"sort"

	"github.com/pkg/errors"
)

// Node is a single participant in the money network: an integer balance
// plus one incoming and one outgoing FIFO channel to every other node, and
// a pair of channels to the observer. It implements the node half of the
// Chandy-Lamport algorithm described in spec.md §4.2.
//
// Node carries no mutex of its own. Every method here assumes the caller
// (always Controller) already holds the coarse lock described in
// spec.md §5; this mirrors serf.Serf's unexported helpers, which assume
// memberLock/eventLock is already held by their exported callers.
type Node struct {
	id      int
	balance int

	incoming map[int]*fifo // peer id -> channel from peer to this node
	outgoing map[int]*fifo // peer id -> channel from this node to peer

	observerIn  *fifo // observer -> node
	observerOut *fifo // node -> observer

	// Snapshot-local state. Valid only while recording (remain > 0).
	// Outside a snapshot: recordedBalance/hasRecordedState absent,
	// remain == 0, every recording[*] false, every channelState[*] == 0.
	recording        map[int]bool
	channelState     map[int]int
	remain           int
	recordedBalance  int
	hasRecordedState bool
}

// newNode constructs a Node with the given id and starting balance, and no
// peer wiring yet. Controller wires peers in with connectPeer as the
// topology grows.
func newNode(id, balance int) *Node {
	return &Node{
		id:           id,
		balance:      balance,
		incoming:     make(map[int]*fifo),
		outgoing:     make(map[int]*fifo),
		observerIn:   &fifo{},
		observerOut:  &fifo{},
		recording:    make(map[int]bool),
		channelState: make(map[int]int),
	}
}

// connectPeer wires the pair of channels between this node and peer. Called
// once per ordered pair when Controller creates a new node, both for the
// new node (against every existing peer) and for every existing node
// (against the new one).
func (n *Node) connectPeer(peerID int, out, in *fifo) {
	n.outgoing[peerID] = out
	n.incoming[peerID] = in
}

// isRecording reports whether the node is currently in the Recording state
// of the per-node state machine (spec.md §4.2).
func (n *Node) isRecording() bool {
	return n.remain > 0
}

// sortedPeers returns the node's incoming peer ids in ascending order, used
// anywhere iteration order needs to be deterministic (marker emission,
// remain bookkeeping).
func (n *Node) sortedPeers() []int {
	ids := make([]int, 0, len(n.incoming))
	for id := range n.incoming {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// send implements spec.md §4.2's send(dst, amount). On success the balance
// is decremented and a Transfer is enqueued on the (self->dst) channel. On
// failure the node is left entirely unchanged.
func (n *Node) send(dst, amount int) error {
	if amount < 0 {
		return errors.Wrapf(ErrNegativeAmount, "node %d: send to %d", n.id, dst)
	}
	out, ok := n.outgoing[dst]
	if !ok {
		return errors.Wrapf(ErrUnknownPeer, "node %d: send to unknown peer %d", n.id, dst)
	}
	if amount > n.balance {
		return errors.Wrapf(ErrInsufficientFunds, "node %d: send %d to %d exceeds balance %d", n.id, amount, dst, n.balance)
	}
	n.balance -= amount
	out.enqueue(transferMessage(amount))
	return nil
}

// receive implements spec.md §4.2's receive(src): dequeue one message from
// the (src->self) channel if non-empty and dispatch it. started is always
// false here: only the initiator's start (receiveObserver) is reported, and
// a Marker that makes this node begin recording is not. Receiving from an
// empty channel returns (false, nil) and is a no-op, not an error
// (spec.md §7).
func (n *Node) receive(src int) (started bool, err error) {
	in, ok := n.incoming[src]
	if !ok {
		return false, errors.Wrapf(ErrUnknownPeer, "node %d: receive from unknown peer %d", n.id, src)
	}
	m, ok := in.dequeue()
	if !ok {
		return false, nil
	}
	return n.dispatch(src, m)
}

// receiveObserver implements spec.md §4.2's receive_observer(): if the
// observer->self channel holds a TakeSnapshot, consume it and become the
// snapshot initiator. Reports true if this call started a fresh recording.
func (n *Node) receiveObserver() (started bool, err error) {
	m, ok := n.observerIn.dequeue()
	if !ok {
		return false, nil
	}
	if m.typ != messageTakeSnapshotType {
		return false, errors.Wrapf(ErrProtocolViolation, "node %d: unexpected message %s on observer channel", n.id, m.typ)
	}
	n.startRecording(nil)
	return true, nil
}

// dispatch applies a single dequeued message from peer src, per the
// receive() dispatch rules in spec.md §4.2.
func (n *Node) dispatch(src int, m message) (started bool, err error) {
	switch m.typ {
	case messageTransferType:
		n.balance += m.amount
		if n.isRecording() && n.recording[src] {
			n.channelState[src] += m.amount
		}
		return false, nil

	case messageMarkerType:
		if !n.isRecording() {
			n.startRecording(&src)
			return false, nil
		}
		if n.recording[src] {
			n.recording[src] = false
			n.remain--
		} else {
			// Marker on a channel already closed for recording: tolerated
			// protocol violation, no state change (spec.md §4.2, §7).
		}
		if n.remain == 0 {
			n.finishRecording()
		}
		return false, nil

	default:
		return false, errors.Wrapf(ErrProtocolViolation, "node %d: unexpected message %s from %d", n.id, m.typ, src)
	}
}

// startRecording implements spec.md §4.2's start-recording(src). src is nil
// when the node is the snapshot initiator (triggered by TakeSnapshot);
// otherwise it names the peer whose Marker triggered this call. The order
// fixed by spec.md §9/§12(a) is: record balance, then emit markers on every
// outgoing channel, then set up incoming bookkeeping.
func (n *Node) startRecording(src *int) {
	n.recordedBalance = n.balance
	n.hasRecordedState = true

	for _, peer := range n.sortedPeers() {
		n.outgoing[peer].enqueue(markerMessage())
	}

	remain := 0
	for _, peer := range n.sortedPeers() {
		if src != nil && peer == *src {
			n.recording[peer] = false
			n.channelState[peer] = 0
			continue
		}
		n.recording[peer] = true
		n.channelState[peer] = 0
		remain++
	}
	n.remain = remain

	if n.remain == 0 {
		n.finishRecording()
	}
}

// finishRecording implements spec.md §4.2's finish-recording: emit the
// recorded fragments to the observer and clear all snapshot-local state.
func (n *Node) finishRecording() {
	cs := make(map[int]int, len(n.channelState))
	for k, v := range n.channelState {
		cs[k] = v
	}
	n.observerOut.enqueue(nodeStateMessage(n.recordedBalance))
	n.observerOut.enqueue(channelStateMessage(cs))

	n.hasRecordedState = false
	n.recordedBalance = 0
	n.remain = 0
	for k := range n.recording {
		n.recording[k] = false
	}
	for k := range n.channelState {
		n.channelState[k] = 0
	}
}
