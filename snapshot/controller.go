package snapshot

import (
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	circbuf "github.com/armon/circbuf"
	metrics "github.com/armon/go-metrics"
	uuid "github.com/hashicorp/go-uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// traceBufferSize bounds the ring of recent protocol-notable lines kept for
// introspection (see Controller.RecentTrace). It is not part of the
// required command protocol; it exists purely so an operator driving the
// simulator interactively can ask "what just happened" without re-deriving
// it from the full output stream.
const traceBufferSize = 4096

// Controller is the step/scheduler harness of spec.md §4.4: it owns the
// topology, the channel matrix (implicitly, via each Node's own channel
// maps) and the Observer, and dispatches one atomic step per command. It is
// grounded on serf.Serf's "one struct, one coarse lock" shape.
//
// The single coarse lock recommended by spec.md §5 is Controller.mu: every
// exported method here takes it for its entire duration, so the externally
// observable (dequeue, state change, enqueue) sequence of a step is atomic.
type Controller struct {
	mu sync.Mutex

	nodes    map[int]*Node
	observer *Observer
	clock    epochClock

	out    io.Writer
	logger *log.Logger
	trace  *circbuf.Buffer
}

// NewController creates a fresh Controller. out receives the required,
// test-visible protocol output (spec.md §6): node/channel state lines,
// "Started by Node N", and ERR_SEND tokens. logger receives ambient,
// non-protocol diagnostic lines, following the teacher's bracketed-level
// convention ([DEBUG], [INFO], [WARN], [ERR]).
func NewController(out io.Writer, logger *log.Logger) *Controller {
	trace, _ := circbuf.NewBuffer(traceBufferSize)
	return &Controller{
		nodes:    make(map[int]*Node),
		observer: newObserver(),
		out:      out,
		logger:   logger,
		trace:    trace,
	}
}

// StartMaster implements the StartMaster command (spec.md §6): it
// (re)initializes the controller and observer and clears the topology.
func (c *Controller) StartMaster() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nodes = make(map[int]*Node)
	c.observer = newObserver()
	trace, _ := circbuf.NewBuffer(traceBufferSize)
	c.trace = trace
	c.logf("INFO", "master started")
}

// CreateNode implements the CreateNode command: create a node with the
// given id and balance, then wire channels to every existing peer and the
// observer before admitting any traffic (spec.md §3's lifecycle rule).
func (c *Controller) CreateNode(id, balance int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.nodes[id]; exists {
		return errors.Wrapf(ErrProtocolViolation, "node %d already exists", id)
	}

	node := newNode(id, balance)
	for peerID, peer := range c.nodes {
		fwd := &fifo{} // id -> peerID
		rev := &fifo{} // peerID -> id
		node.connectPeer(peerID, fwd, rev)
		peer.connectPeer(id, rev, fwd)
	}
	c.nodes[id] = node

	c.logf("INFO", "node %d created with balance %d", id, balance)
	metrics.IncrCounter([]string{"chandysim", "node", "created"}, 1)
	return nil
}

// node looks up a node by id, returning ErrUnknownPeer if it isn't part of
// the current topology.
func (c *Controller) node(id int) (*Node, error) {
	n, ok := c.nodes[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPeer, "unknown node %d", id)
	}
	return n, nil
}

// sortedNodeIDs returns every known node id in ascending order, the
// iteration order spec.md §6 requires for PrintSnapshot and the order this
// controller uses for every deterministic sweep (ReceiveAll, CollectState).
func (c *Controller) sortedNodeIDs() []int {
	ids := make([]int, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Send implements the Send command (spec.md §6, §4.2). An insufficient-
// funds failure is reported as the ERR_SEND token on c.out (spec.md §6)
// rather than returned as a hard failure to the caller; the caller may
// still inspect the returned error for logging purposes.
func (c *Controller) Send(src, dst, amount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer metrics.MeasureSince([]string{"chandysim", "send"}, time.Now())

	node, err := c.node(src)
	if err != nil {
		c.logf("WARN", "send from unknown node %d", src)
		return err
	}
	if _, err := c.node(dst); err != nil {
		c.logf("WARN", "send to unknown node %d", dst)
		return errors.Wrapf(ErrUnknownPeer, "unknown destination %d", dst)
	}

	if err := node.send(dst, amount); err != nil {
		if errors.Cause(err) == ErrInsufficientFunds {
			fmt.Fprintln(c.out, "ERR_SEND")
			c.traceLine("ERR_SEND node=%d dst=%d amount=%d", src, dst, amount)
			metrics.IncrCounter([]string{"chandysim", "send", "rejected"}, 1)
		}
		return err
	}
	metrics.IncrCounter([]string{"chandysim", "send", "ok"}, 1)
	return nil
}

// Receive implements the Receive command with an explicit source
// (spec.md §6, §4.2's receive(src)).
func (c *Controller) Receive(dst, src int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, err := c.node(dst)
	if err != nil {
		return err
	}
	started, err := node.receive(src)
	if err != nil {
		return err
	}
	if started {
		c.announceStarted(dst)
	}
	return nil
}

// ReceiveAny implements the Receive command with src omitted: dst receives
// one message from some arbitrary non-empty incoming peer channel
// (spec.md §6). Mirrors original_source/master.py's Receive command, which
// also restricts the arbitrary choice to node peers: the observer->node
// channel is not considered here (only ReceiveAll drains it). The first
// non-empty peer channel in ascending peer id order is chosen.
func (c *Controller) ReceiveAny(dst int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, err := c.node(dst)
	if err != nil {
		return err
	}
	for _, src := range node.sortedPeers() {
		if !node.incoming[src].nonEmpty() {
			continue
		}
		started, err := node.receive(src)
		if err != nil {
			return err
		}
		if started {
			c.announceStarted(dst)
		}
		return nil
	}
	return nil // every incoming channel empty: no-op
}

// ReceiveAll implements the ReceiveAll command (spec.md §4.4, §12(b)): it
// drives the network, round after round, selecting any non-empty
// Node->Node or Observer->Node channel and invoking the appropriate
// receiver, until the entire matrix (excluding Node->Observer reporting
// channels, which only CollectState drains) is empty. Selection is
// round-robin by ascending node id rather than random, which still
// satisfies spec.md's "every non-empty channel eventually selected"
// starvation-freedom requirement while keeping the simulator's behavior
// reproducible.
func (c *Controller) ReceiveAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		progressed := false
		for _, id := range c.sortedNodeIDs() {
			node := c.nodes[id]

			if node.observerIn.nonEmpty() {
				started, err := node.receiveObserver()
				if err != nil {
					c.logf("WARN", "node %d: %s", id, err)
				} else if started {
					c.announceStarted(id)
				}
				progressed = true
			}

			for _, src := range node.sortedPeers() {
				if !node.incoming[src].nonEmpty() {
					continue
				}
				started, err := node.receive(src)
				if err != nil {
					c.logf("WARN", "node %d: %s", id, err)
				} else if started {
					c.announceStarted(id)
				}
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// announceStarted writes the "Started by Node N" trace required by
// spec.md §6 exactly once, at the moment the named node begins recording
// as the snapshot initiator (never for a marker-triggered start elsewhere
// in the network).
func (c *Controller) announceStarted(nodeID int) {
	fmt.Fprintf(c.out, "Started by Node %d\n", nodeID)
	epoch := c.clock.Increment()
	c.traceLine("snapshot epoch=%d started by node=%d", epoch, nodeID)
}

// BeginSnapshot implements the BeginSnapshot command (spec.md §6, §4.3).
// Per SPEC_FULL.md §12(c), a non-existent node id is a no-op, not an
// error. A snapshot already in progress is likewise a silent no-op
// (spec.md §4.3, scenario 6).
//
// The TakeSnapshot message is enqueued onto the initiator's observer-in
// channel and drained in the same step, rather than left for a later
// ReceiveAll pass: scenario 5 (spec.md §8) requires that a Send command
// issued after BeginSnapshot in the script is observed by the initiator
// as occurring after its own marker emission, which only holds if
// BeginSnapshot's effects — recording the initiator's balance and
// emitting its markers — are visible before the next command runs.
func (c *Controller) BeginSnapshot(initiatorID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[initiatorID]
	if !ok {
		c.logf("WARN", "BeginSnapshot: unknown node %d", initiatorID)
		return
	}
	if !c.observer.beginSnapshot(initiatorID) {
		c.logf("WARN", "BeginSnapshot: snapshot already in progress, ignoring node %d", initiatorID)
		return
	}

	id, _ := uuid.GenerateUUID()
	c.logf("INFO", "snapshot %s requested, initiator node %d", id, initiatorID)
	node.observerIn.enqueue(takeSnapshotMessage())

	started, err := node.receiveObserver()
	if err != nil {
		c.logf("WARN", "node %d: %s", initiatorID, err)
		return
	}
	if started {
		c.announceStarted(initiatorID)
	}
}

// CollectState implements the CollectState command (spec.md §4.3): drain
// every node->observer channel into the observer's maps. It is monotonic
// and safe to call before every node has finished recording (spec.md §4.3)
// and is a no-op once the snapshot has already completed (idempotence,
// spec.md §8).
func (c *Controller) CollectState() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs *multierror.Error
	ids := c.sortedNodeIDs()
	for _, id := range ids {
		node := c.nodes[id]
		for {
			m, ok := node.observerOut.dequeue()
			if !ok {
				break
			}
			if err := c.observer.ingest(id, m); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	c.observer.checkComplete(ids)
	return errs.ErrorOrNil()
}

// PrintSnapshot implements the PrintSnapshot command (spec.md §4.3, §6).
func (c *Controller) PrintSnapshot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer.printSnapshot(c.out)
}

// KillAll implements the KillAll command: tear down every node and
// channel. There is nothing asynchronous to join in this single-threaded
// scheduler model (spec.md §5), so teardown is simply discarding state;
// go-multierror is used regardless to keep the same aggregate-failure
// shape as every other batch operation in this package.
func (c *Controller) KillAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs *multierror.Error
	c.nodes = make(map[int]*Node)
	c.observer = newObserver()
	c.logf("INFO", "all nodes torn down")
	return errs.ErrorOrNil()
}

// NodeSummary is a lightweight, read-only view of a node's current
// balance, used by the supplemental ListNodes command (SPEC_FULL.md §11);
// it carries no snapshot-local state and is never part of the required
// PrintSnapshot output.
type NodeSummary struct {
	ID      int
	Balance int
}

// Nodes returns a summary of every known node in ascending id order.
func (c *Controller) Nodes() []NodeSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.sortedNodeIDs()
	out := make([]NodeSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, NodeSummary{ID: id, Balance: c.nodes[id].balance})
	}
	return out
}

// Balance returns node id's current balance, for tests and introspection.
func (c *Controller) Balance(id int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, err := c.node(id)
	if err != nil {
		return 0, err
	}
	return node.balance, nil
}

// RecentTrace returns the bounded ring of recent protocol-notable lines
// (ERR_SEND tokens, snapshot starts). It is supplemental introspection,
// not part of the required command protocol output.
func (c *Controller) RecentTrace() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.trace.Bytes())
}

func (c *Controller) traceLine(format string, args ...interface{}) {
	if c.trace == nil {
		return
	}
	fmt.Fprintf(c.trace, format+"\n", args...)
}

func (c *Controller) logf(level, format string, args ...interface{}) {
	if c.logger == nil {
		return
	}
	c.logger.Printf("[%s] controller: %s", level, fmt.Sprintf(format, args...))
}
