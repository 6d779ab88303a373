// Package engine turns the line-oriented command protocol of spec.md §6
// into calls against snapshot.Controller. Tokenizing a raw line and
// deciding which command it names is the "line-parsing command loop"
// spec.md §1 delegates away from the core as ambient, low-rigor plumbing;
// it still has to exist, so it lives here rather than in the core
// snapshot package.
package engine

import (
	"strconv"
	"strings"
)

// parsedCommand is the result of tokenizing one input line: a command name
// plus its raw, still-stringly-typed arguments, keyed the way each
// command's handler expects. This mirrors the raw map[string]interface{}
// that command/agent/ipc.go's handleRequest decodes with mapstructure,
// except here the map is assembled from whitespace-split tokens instead of
// arriving off an already-structured RPC wire.
type parsedCommand struct {
	name string
	args map[string]interface{}
}

// parseLine tokenizes one line of input. A blank line, an unrecognized
// command name, or a malformed argument all silently produce a nil
// parsedCommand: spec.md §6 says unknown commands are silently ignored, and
// spec.md §7 says command-parse errors are silently dropped.
func parseLine(line string) *parsedCommand {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, rest := fields[0], fields[1:]

	switch name {
	case "StartMaster", "ReceiveAll", "CollectState", "PrintSnapshot", "KillAll", "ListNodes":
		return &parsedCommand{name: name, args: map[string]interface{}{}}

	case "CreateNode":
		id, okID := atoi(rest, 0)
		money, okMoney := atoi(rest, 1)
		if !okID || !okMoney {
			return nil
		}
		return &parsedCommand{name: name, args: map[string]interface{}{"Id": id, "Money": money}}

	case "Send":
		src, okSrc := atoi(rest, 0)
		dst, okDst := atoi(rest, 1)
		amount, okAmount := atoi(rest, 2)
		if !okSrc || !okDst || !okAmount {
			return nil
		}
		return &parsedCommand{name: name, args: map[string]interface{}{
			"Src": src, "Dst": dst, "Amount": amount,
		}}

	case "Receive":
		dst, okDst := atoi(rest, 0)
		if !okDst {
			return nil
		}
		args := map[string]interface{}{"Dst": dst, "HasSrc": false}
		if len(rest) >= 2 {
			src, okSrc := atoi(rest, 1)
			if !okSrc {
				return nil
			}
			args["Src"] = src
			args["HasSrc"] = true
		}
		return &parsedCommand{name: name, args: args}

	case "BeginSnapshot":
		id, okID := atoi(rest, 0)
		if !okID {
			return nil
		}
		return &parsedCommand{name: name, args: map[string]interface{}{"Id": id}}

	default:
		return nil
	}
}

func atoi(fields []string, index int) (int, bool) {
	if index >= len(fields) {
		return 0, false
	}
	v, err := strconv.Atoi(fields[index])
	if err != nil {
		return 0, false
	}
	return v, true
}

// Typed request shapes, decoded from parsedCommand.args with
// github.com/mitchellh/mapstructure the same way command/agent/ipc.go's
// handleX methods decode their raw RPC payload before acting on it.

type createNodeRequest struct {
	Id    int
	Money int
}

type sendRequest struct {
	Src    int
	Dst    int
	Amount int
}

type receiveRequest struct {
	Dst    int
	Src    int
	HasSrc bool
}

type beginSnapshotRequest struct {
	Id int
}
