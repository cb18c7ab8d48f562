// Package protocol decodes the game's port-5003 application frames: a
// protobuf-shaped wrapper around chat, recruitment, and profile-asset
// payloads.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Channel identifies the chat channel a message was posted on.
type Channel int

const (
	ChannelWorld Channel = iota
	ChannelLocal
	ChannelParty
	ChannelGuild
)

func (c Channel) String() string {
	switch c {
	case ChannelLocal:
		return "LOCAL"
	case ChannelParty:
		return "PARTY"
	case ChannelGuild:
		return "GUILD"
	default:
		return "WORLD"
	}
}

func channelFromVarint(v uint64) Channel {
	switch v {
	case 2:
		return ChannelLocal
	case 3:
		return ChannelParty
	case 4:
		return ChannelGuild
	default:
		return ChannelWorld
	}
}

func (c Channel) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Channel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "LOCAL":
		*c = ChannelLocal
	case "PARTY":
		*c = ChannelParty
	case "GUILD":
		*c = ChannelGuild
	default:
		*c = ChannelWorld
	}
	return nil
}

// ChatBlock is one raw chat sub-message extracted during stage 1, still
// keyed by its wrapping field number (2 for the primary path, 4 for the
// secondary/echo path).
type ChatBlock struct {
	FieldNum uint32
	Data     []byte
}

// SplitPayload is stage 1's output: a channel hint plus the ordered chat
// and entity blocks found inside one application frame.
type SplitPayload struct {
	Channel     Channel
	ChatBlocks  []ChatBlock
	EntityBlock []byte // present when a non-chat wire-2 field was observed; routed to Recruit/Asset decode.
}

// SenderInfo is the nested sender block found inside the primary chat path.
type SenderInfo struct {
	UID      uint64
	Nickname string
	ClassID  uint64
	Status   uint64
	Level    uint64
	Blocked  bool
}

// ChatPayload is the fully decoded primary (field-2) chat sub-message.
type ChatPayload struct {
	SequenceID  uint64
	TimestampMs uint64
	Message     string
	Sender      SenderInfo
}

// ChatEvent is the typed event emitted for a decoded, non-blocked chat
// message.
type ChatEvent struct {
	PID            uint64  `json:"pid"`
	Channel        Channel `json:"channel"`
	Nickname       string  `json:"nickname"`
	NicknameRomaji string  `json:"nicknameRomaji,omitempty"`
	UID            uint64  `json:"uid"`
	ClassID        uint64  `json:"classId"`
	Level          uint64  `json:"level"`
	SequenceID     uint64  `json:"sequenceId"`
	TimestampMs    uint64  `json:"timestamp"`
	Message        string  `json:"message"`
	Translated     string  `json:"translated,omitempty"`
}

// RecruitEvent is a party/lobby recruitment post.
type RecruitEvent struct {
	PID            uint64 `json:"pid"`
	PartyID        uint64 `json:"partyId"`
	RecruitID      uint64 `json:"recruitId"`
	LeaderNickname string `json:"leaderNickname"`
	Description    string `json:"description"`
	MemberCount    uint64 `json:"memberCount"`
	MaxMembers     uint64 `json:"maxMembers"`
	TimestampMs    uint64 `json:"timestamp"`
	Translated     string `json:"translated,omitempty"`
	NicknameRomaji string `json:"nicknameRomaji,omitempty"`
}

// DedupKey is the emission-cache key for this recruitment post.
func (r RecruitEvent) DedupKey() string {
	return fmt.Sprintf("recruit_%d", r.RecruitID)
}

// DedupContent is the byte content hashed to detect a meaningful change.
func (r RecruitEvent) DedupContent() []byte {
	return []byte(fmt.Sprintf("%d|%s|%s|%d|%d", r.PartyID, r.LeaderNickname, r.Description, r.MemberCount, r.MaxMembers))
}

// AssetEvent is a profile/avatar asset update.
type AssetEvent struct {
	PID           uint64 `json:"pid"`
	UID           uint64 `json:"uid"`
	SnapshotURL   string `json:"snapshotUrl"`
	HalflengthURL string `json:"halflengthUrl"`
	StatusText    string `json:"statusText"`
	TimestampMs   uint64 `json:"timestamp"`
	Translated    string `json:"translated,omitempty"`
}

func (a AssetEvent) DedupKey() string {
	return fmt.Sprintf("asset_%d", a.UID)
}

func (a AssetEvent) DedupContent() []byte {
	return []byte(fmt.Sprintf("%s|%s|%s", a.SnapshotURL, a.HalflengthURL, a.StatusText))
}

// Event is the tagged union produced by stage 2: exactly one of Chat,
// Recruit, Asset is non-nil.
type Event struct {
	Chat    *ChatEvent
	Recruit *RecruitEvent
	Asset   *AssetEvent
}
