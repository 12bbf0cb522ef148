package wire

// W3GS opcodes named in spec.md §6. Only the subset the core actually
// drives is given a concrete encoder below; the rest exist so callers can
// name them when logging or dispatching raw frames.
const (
	OpPingFromHost      = 0x01
	OpSlotInfoJoin      = 0x04
	OpRejectJoin        = 0x05
	OpPlayerInfo        = 0x06
	OpPlayerLeft        = 0x07
	OpPlayerLoaded      = 0x08
	OpSlotInfo          = 0x09
	OpCountdownStart    = 0x0A
	OpCountdownEnd      = 0x0B
	OpIncomingAction    = 0x0C
	OpChatFromHost      = 0x0F
	OpStartLag          = 0x10
	OpStopLag           = 0x11
	OpLeaveAck          = 0x1B
	OpReqJoin           = 0x1E
	OpLeaveReq          = 0x21
	OpGameLoadedSelf    = 0x23
	OpOutgoingAction    = 0x26
	OpOutgoingKeepAlive = 0x27
	OpChatToHost        = 0x28
	OpDropReq           = 0x29
	OpSearchGame        = 0x2F // LAN broadcast request
	OpGameInfo          = 0x30 // LAN broadcast (UDP)
	OpCreateGame        = 0x31
	OpRefreshGame       = 0x32
	OpDecreateGame      = 0x33
	OpMapCheck          = 0x3D
	OpStartDownload     = 0x3F
	OpMapSize           = 0x42
	OpMapPart           = 0x43
	OpMapPartOK         = 0x44
	OpPongToHost        = 0x46
)

// LeftCode mirrors the W3GS player-left reason codes the spec references
// (§3 Player.left_reason, §4.3 votekick outcome, §8 property 3).
type LeftCode byte

const (
	LeftLobby LeftCode = 0x07
	LeftLost  LeftCode = 0x01
	LeftWon   LeftCode = 0x09
	LeftDrop  LeftCode = 0x0D
)

// RejectReason is the payload of W3GS_REJECTJOIN.
type RejectReason uint32

const (
	RejectFull RejectReason = iota + 9
	RejectStarted
	RejectWrongPassword
)

// ChatRecipient* addressing flags used by the action-relay and
// chat-to-host framing; only the flags the dispatcher needs are named.
const (
	ChatRecipientAll    byte = 0x00
	ChatRecipientAllies byte = 0x02
	ChatRecipientObs    byte = 0x03
	ChatRecipientPrivate byte = 0x04
)

// PlayerInfo encodes a W3GS_PLAYERINFO packet announcing a joined player.
func PlayerInfo(pid byte, name string, externalIP [4]byte, externalPort uint16) []byte {
	e := NewEncoder().
		Uint32(1). // join counter, unused by peers
		Byte(pid).
		String(name).
		Byte(1). // unknown/unused field, always 1 in the real protocol
		Byte(2). // sockaddr family AF_INET
		Uint16(0).
		Bytes(externalIP[:])
	_ = externalPort // external port is embedded in a sockaddr the client ignores for LAN joins
	return e.Payload()
}

// SlotInfo encodes a W3GS_SLOTINFO/W3GS_SLOTINFOJOIN body from a slot table
// snapshot. Callers pick the opcode (OpSlotInfo vs OpSlotInfoJoin).
func SlotInfo(slots []SlotWire, randomSeed uint32, layout, playerSlot byte) []byte {
	e := NewEncoder()
	slotsPayload := NewEncoder()
	slotsPayload.Byte(byte(len(slots)))
	for _, s := range slots {
		slotsPayload.
			Byte(s.PID).
			Byte(s.DownloadStatus).
			Byte(s.SlotStatus).
			Byte(s.Computer).
			Byte(s.Team).
			Byte(s.Colour).
			Byte(s.Race).
			Byte(s.ComputerType).
			Byte(s.Handicap)
	}
	body := slotsPayload.Payload()
	e.Uint16(uint16(len(body))).Bytes(body).Uint32(randomSeed).Byte(layout).Byte(byte(len(slots))).Byte(playerSlot)
	return e.Payload()
}

// SlotWire is the wire shape of one slot, decoupled from the domain Slot
// type in internal/game so this package imports no other internal package.
type SlotWire struct {
	PID            byte
	DownloadStatus byte
	SlotStatus     byte
	Computer       byte
	Team           byte
	Colour         byte
	Race           byte
	ComputerType   byte
	Handicap       byte
}

// CountdownStart/End and GameLoadedSelf carry no payload.
func Empty() []byte { return nil }

// ChatFromHost encodes a chat or notification line from the host to one
// or more players.
func ChatFromHost(fromPID byte, toPIDs []byte, recipient byte, flags uint32, message string) []byte {
	e := NewEncoder().Byte(byte(len(toPIDs))).Bytes(toPIDs).Byte(fromPID).Byte(recipient)
	if recipient == ChatRecipientPrivate {
		e.Uint32(flags)
	}
	e.String(message)
	return e.Payload()
}

// IncomingAction encodes one batched W3GS_INCOMING_ACTION tick.
func IncomingAction(sendInterval uint16, actions []PlayerAction) []byte {
	e := NewEncoder().Uint16(sendInterval)
	for _, a := range actions {
		sub := NewEncoder().Byte(a.PID).Bytes(a.Data)
		body := sub.Payload()
		e.Uint16(uint16(len(body))).Bytes(body)
	}
	return e.Payload()
}

// PlayerAction is one player's buffered action data within a latency tick.
type PlayerAction struct {
	PID  byte
	Data []byte
}

// LagStart/LagStop encode the lag-screen protocol (spec §4.4).
func LagStart(pids []byte, laggers map[byte]uint32) []byte {
	e := NewEncoder().Byte(byte(len(pids)))
	for _, pid := range pids {
		e.Byte(pid).Uint32(laggers[pid])
	}
	return e.Payload()
}

func LagStop(pids []byte) []byte {
	e := NewEncoder().Byte(byte(len(pids)))
	for _, pid := range pids {
		e.Byte(pid)
	}
	return e.Payload()
}

// PlayerLeft encodes the departure frame broadcast to remaining players.
func PlayerLeft(pid byte, reason LeftCode) []byte {
	return NewEncoder().Byte(pid).Uint32(uint32(reason)).Payload()
}

// RejectJoin encodes the rejection reason sent before closing a join attempt.
func RejectJoin(reason RejectReason) []byte {
	return NewEncoder().Uint32(uint32(reason)).Payload()
}

// GameInfoFields holds the values GameInfo encodes into the UDP
// W3GS_GAMEINFO broadcast datagram (spec §6).
type GameInfoFields struct {
	ProductTFT    bool
	Version       uint32
	HostCounter   uint32
	GameName      string
	MapPath       string
	Creator       string
	MapCRC        uint32
	MapWidth      uint16
	MapHeight     uint16
	SlotsTotal    byte
	SlotsOpen     byte
	UptimeSeconds uint32
	HostPort      uint16
}

// JoinRequest is the decoded payload of W3GS_REQ_JOIN.
type JoinRequest struct {
	HostCounter  uint32
	EntryKey     uint32
	Name         string
	ExternalIP   [4]byte
	ExternalPort uint16
}

// EncodeJoinRequest builds a W3GS_REQ_JOIN payload, mirroring the field
// order DecodeJoinRequest expects. Exists mainly for round-trip tests —
// in production only the client ever emits this packet.
func EncodeJoinRequest(req JoinRequest) []byte {
	e := NewEncoder().
		Uint32(req.HostCounter).
		Uint32(req.EntryKey).
		Byte(0).
		String(req.Name).
		Byte(0).
		Uint16(0).
		Bytes([]byte{0, 0, 0, 0}).
		Uint16(req.ExternalPort).
		Bytes(req.ExternalIP[:])
	return e.Payload()
}

// DecodeJoinRequest parses a W3GS_REQ_JOIN payload.
func DecodeJoinRequest(payload []byte) (JoinRequest, error) {
	d := NewDecoder(payload)
	req := JoinRequest{
		HostCounter: d.Uint32(),
		EntryKey:    d.Uint32(),
	}
	_ = d.Byte() // unknown/unused byte present in the real packet layout
	req.Name = d.String()
	_ = d.Byte() // zero-length internal-data marker
	_ = d.Uint16()
	d.Bytes(4) // internal IP, unused by the core
	req.ExternalPort = d.Uint16()
	copy(req.ExternalIP[:], d.Bytes(4))
	if err := d.Err(); err != nil {
		return JoinRequest{}, err
	}
	return req, nil
}

// ChatToHost is the decoded payload of W3GS_CHAT_TO_HOST.
type ChatToHost struct {
	ToPIDs  []byte
	FromPID byte
	Flags   byte
	Extra   uint32 // recipient-specific: ping value or target PID; unused unless Flags demands it
	Message string
}

// DecodeChatToHost parses a W3GS_CHAT_TO_HOST payload.
func DecodeChatToHost(payload []byte) (ChatToHost, error) {
	d := NewDecoder(payload)
	n := d.Byte()
	c := ChatToHost{
		ToPIDs:  d.Bytes(int(n)),
		FromPID: d.Byte(),
		Flags:   d.Byte(),
	}
	if c.Flags == ChatRecipientPrivate {
		c.Extra = d.Uint32()
	}
	c.Message = d.String()
	if err := d.Err(); err != nil {
		return ChatToHost{}, err
	}
	return c, nil
}

func GameInfo(f GameInfoFields) []byte {
	product := uint32(0x57334D50) // "PM3W" (ROC), same layout TFT overrides via Version
	e := NewEncoder().
		Uint32(product).
		Uint32(f.Version).
		Uint32(f.HostCounter).
		String(f.GameName).
		Byte(0). // password placeholder, unused (no game passwords in this spec)
		String(f.MapPath + "\x00" + f.Creator).
		Uint32(f.MapCRC).
		Uint16(f.MapWidth).
		Uint16(f.MapHeight).
		Byte(f.SlotsTotal).
		Byte(f.SlotsOpen).
		Uint32(f.UptimeSeconds).
		Uint16(f.HostPort)
	return e.Payload()
}
