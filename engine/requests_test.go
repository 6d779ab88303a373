package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_BlankAndUnknownAreNil(t *testing.T) {
	assert.Nil(t, parseLine(""))
	assert.Nil(t, parseLine("   "))
	assert.Nil(t, parseLine("Frobnicate 1 2"))
}

func TestParseLine_NoArgCommands(t *testing.T) {
	for _, name := range []string{"StartMaster", "ReceiveAll", "CollectState", "PrintSnapshot", "KillAll", "ListNodes"} {
		cmd := parseLine(name)
		require.NotNil(t, cmd, "command %q", name)
		assert.Equal(t, name, cmd.name)
		assert.Empty(t, cmd.args)
	}
}

func TestParseLine_CreateNode(t *testing.T) {
	cmd := parseLine("CreateNode 1 100")
	require.NotNil(t, cmd)
	assert.Equal(t, "CreateNode", cmd.name)
	assert.Equal(t, 1, cmd.args["Id"])
	assert.Equal(t, 100, cmd.args["Money"])
}

func TestParseLine_CreateNodeMalformedIsNil(t *testing.T) {
	assert.Nil(t, parseLine("CreateNode 1"))
	assert.Nil(t, parseLine("CreateNode one 100"))
}

func TestParseLine_Send(t *testing.T) {
	cmd := parseLine("Send 1 2 30")
	require.NotNil(t, cmd)
	assert.Equal(t, "Send", cmd.name)
	assert.Equal(t, 1, cmd.args["Src"])
	assert.Equal(t, 2, cmd.args["Dst"])
	assert.Equal(t, 30, cmd.args["Amount"])
}

func TestParseLine_ReceiveWithoutSrc(t *testing.T) {
	cmd := parseLine("Receive 2")
	require.NotNil(t, cmd)
	assert.Equal(t, "Receive", cmd.name)
	assert.Equal(t, 2, cmd.args["Dst"])
	assert.Equal(t, false, cmd.args["HasSrc"])
	assert.NotContains(t, cmd.args, "Src")
}

func TestParseLine_ReceiveWithSrc(t *testing.T) {
	cmd := parseLine("Receive 2 1")
	require.NotNil(t, cmd)
	assert.Equal(t, 2, cmd.args["Dst"])
	assert.Equal(t, 1, cmd.args["Src"])
	assert.Equal(t, true, cmd.args["HasSrc"])
}

func TestParseLine_BeginSnapshot(t *testing.T) {
	cmd := parseLine("BeginSnapshot 1")
	require.NotNil(t, cmd)
	assert.Equal(t, "BeginSnapshot", cmd.name)
	assert.Equal(t, 1, cmd.args["Id"])
}

func TestParseLine_BeginSnapshotMalformedIsNil(t *testing.T) {
	assert.Nil(t, parseLine("BeginSnapshot"))
	assert.Nil(t, parseLine("BeginSnapshot x"))
}
