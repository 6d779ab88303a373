package snapshot

// messageType identifies the kind of payload carried on a channel. It plays
// the same role as serf's messageType: a small tagged enum that lets a
// single queue carry several structurally different payloads.
type messageType uint8

const (
	messageTransferType messageType = iota
	messageMarkerType
	messageTakeSnapshotType
	messageNodeStateType
	messageChannelStateType
)

func (t messageType) String() string {
	switch t {
	case messageTransferType:
		return "Transfer"
	case messageMarkerType:
		return "Marker"
	case messageTakeSnapshotType:
		return "TakeSnapshot"
	case messageNodeStateType:
		return "NodeState"
	case messageChannelStateType:
		return "ChannelState"
	default:
		return "Unknown"
	}
}

// message is the single value type carried by every fifo in the system.
// Exactly one of the fields below is meaningful, selected by typ, mirroring
// how serf's messageJoin/messageLeave/messageUserEvent are distinct structs
// unified only by the wire messageType byte that precedes them.
type message struct {
	typ messageType

	// Transfer
	amount int

	// NodeState
	balance int

	// ChannelState: sender node id -> accumulated in-flight amount
	channelState map[int]int
}

func transferMessage(amount int) message {
	return message{typ: messageTransferType, amount: amount}
}

func markerMessage() message {
	return message{typ: messageMarkerType}
}

func takeSnapshotMessage() message {
	return message{typ: messageTakeSnapshotType}
}

func nodeStateMessage(balance int) message {
	return message{typ: messageNodeStateType, balance: balance}
}

func channelStateMessage(cs map[int]int) message {
	return message{typ: messageChannelStateType, channelState: cs}
}
