package engine

import (
	"bufio"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/ryanuber/columnize"

	"github.com/gopherlabs/chandysim/snapshot"
)

// Engine is the thin dispatch layer between the line command protocol and
// snapshot.Controller. It owns none of the protocol state itself; it only
// decodes already-tokenized arguments into typed requests and forwards
// them, the same division of labor as command/agent/ipc.go's
// handleRequest/handleX split.
type Engine struct {
	controller *snapshot.Controller
	out        io.Writer
}

// New creates an Engine driving controller, writing required protocol
// output to out.
func New(controller *snapshot.Controller, out io.Writer) *Engine {
	return &Engine{controller: controller, out: out}
}

// Dispatch parses and executes a single command line. Unknown commands and
// malformed argument lists are silently ignored (spec.md §6, §7); any error
// surfaced is always from a recognized command whose handler chose to
// report it: CreateNode (an id that already exists), CollectState and
// KillAll return their controller errors, while Send, Receive and
// BeginSnapshot never return one. No error stops the simulator; RunScript
// records it and goes on with the next line.
func (e *Engine) Dispatch(line string) error {
	cmd := parseLine(line)
	if cmd == nil {
		return nil
	}

	switch cmd.name {
	case "StartMaster":
		e.controller.StartMaster()
		return nil

	case "CreateNode":
		var req createNodeRequest
		if err := mapstructure.Decode(cmd.args, &req); err != nil {
			return nil
		}
		return e.controller.CreateNode(req.Id, req.Money)

	case "Send":
		var req sendRequest
		if err := mapstructure.Decode(cmd.args, &req); err != nil {
			return nil
		}
		// ERR_SEND is already emitted by Controller.Send onto e.out; the
		// error is swallowed here so a rejected transfer never halts the
		// command stream (spec.md §7).
		_ = e.controller.Send(req.Src, req.Dst, req.Amount)
		return nil

	case "Receive":
		var req receiveRequest
		if err := mapstructure.Decode(cmd.args, &req); err != nil {
			return nil
		}
		if req.HasSrc {
			_ = e.controller.Receive(req.Dst, req.Src)
		} else {
			_ = e.controller.ReceiveAny(req.Dst)
		}
		return nil

	case "ReceiveAll":
		e.controller.ReceiveAll()
		return nil

	case "BeginSnapshot":
		var req beginSnapshotRequest
		if err := mapstructure.Decode(cmd.args, &req); err != nil {
			return nil
		}
		e.controller.BeginSnapshot(req.Id)
		return nil

	case "CollectState":
		return e.controller.CollectState()

	case "PrintSnapshot":
		e.controller.PrintSnapshot()
		return nil

	case "KillAll":
		return e.controller.KillAll()

	case "ListNodes":
		e.listNodes()
		return nil
	}

	return nil
}

// listNodes renders the supplemental ListNodes debug command
// (SPEC_FULL.md §11) as an aligned table with
// github.com/ryanuber/columnize. It is never used for PrintSnapshot, whose
// fixed, test-visible format (spec.md §6) must never be column-aligned.
func (e *Engine) listNodes() {
	rows := []string{"Node | Balance"}
	for _, n := range e.controller.Nodes() {
		rows = append(rows, fmt.Sprintf("%d | %d", n.ID, n.Balance))
	}
	fmt.Fprintln(e.out, columnize.SimpleFormat(rows))
}

// RunScript reads newline-separated commands from r and dispatches each in
// turn, aggregating every failed line's error with
// github.com/hashicorp/go-multierror instead of stopping at the first one
// — a script is a batch, and spec.md §7 requires every error to stay
// localized to its own command.
func (e *Engine) RunScript(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var errs *multierror.Error
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := e.Dispatch(scanner.Text()); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("line %d: %w", lineNo, err))
		}
	}
	if err := scanner.Err(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
