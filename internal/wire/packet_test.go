package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadPacket_RoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, OpChatFromHost, payload))

	opcode, got, err := ReadPacket(&buf)
	require.NoError(t, err)
	require.Equal(t, byte(OpChatFromHost), opcode)
	require.Equal(t, payload, got)
}

func TestReadPacket_BadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x01, 0x04, 0x00})
	_, _, err := ReadPacket(buf)
	require.Error(t, err)
}

func TestEncoderDecoder_RoundTrip(t *testing.T) {
	payload := NewEncoder().
		Byte(7).
		Uint16(1234).
		Uint32(999999).
		String("hello").
		Bool(true).
		Payload()

	d := NewDecoder(payload)
	require.Equal(t, byte(7), d.Byte())
	require.Equal(t, uint16(1234), d.Uint16())
	require.Equal(t, uint32(999999), d.Uint32())
	require.Equal(t, "hello", d.String())
	require.Equal(t, byte(1), d.Byte())
	require.NoError(t, d.Err())
}

func TestDecoder_ShortBufferSetsErr(t *testing.T) {
	d := NewDecoder([]byte{1, 2})
	_ = d.Uint32()
	require.Error(t, d.Err())
}

func TestPlayerInfo(t *testing.T) {
	got := PlayerInfo(3, "Player1", [4]byte{127, 0, 0, 1}, 6112)
	require.NotEmpty(t, got)
	d := NewDecoder(got)
	d.Uint32()
	require.Equal(t, byte(3), d.Byte())
	require.Equal(t, "Player1", d.String())
}

func TestSlotInfo(t *testing.T) {
	slots := []SlotWire{
		{PID: 1, SlotStatus: 2, Team: 0, Colour: 0},
		{PID: 2, SlotStatus: 2, Team: 1, Colour: 1},
	}
	got := SlotInfo(slots, 42, 0, 1)
	require.NotEmpty(t, got)
}

func TestGameInfo(t *testing.T) {
	got := GameInfo(GameInfoFields{
		GameName:   "Test Game",
		MapPath:    "Maps\\DotA.w3x",
		Creator:    "Host",
		SlotsTotal: 12,
		SlotsOpen:  10,
		HostPort:   6112,
	})
	require.NotEmpty(t, got)
}
