package protocol

import "sync/atomic"

// pidCounter assigns the process-local, monotonically-increasing id carried
// on every emitted event.
var pidCounter uint64

func nextPID() uint64 {
	return atomic.AddUint64(&pidCounter, 1)
}

// Stage2Process decodes the chat blocks and, best-effort, the entity block
// produced by Stage1Split into the typed events they represent.
func Stage2Process(split *SplitPayload) []Event {
	if split == nil {
		return nil
	}

	var events []Event
	for _, block := range split.ChatBlocks {
		switch block.FieldNum {
		case 2:
			if ev, ok := decodePrimaryChat(split.Channel, block.Data); ok {
				events = append(events, Event{Chat: ev})
			}
		case 4:
			if ev, ok := decodeSecondaryChat(split.Channel, block.Data); ok {
				events = append(events, Event{Chat: ev})
			}
		}
	}

	if split.EntityBlock != nil {
		if ev, ok := decodeEntityBlock(split.EntityBlock); ok {
			events = append(events, ev)
		}
	}

	return events
}

func decodePrimaryChat(channel Channel, data []byte) (*ChatEvent, bool) {
	var payload ChatPayload
	cursor := 0
	for cursor < len(data) {
		tag, tn := readVarint(data[cursor:])
		if tn == 0 {
			break
		}
		cursor += tn
		fieldNum := tag >> 3
		wireType := byte(tag & 0x7)
		remaining := data[cursor:]

		switch {
		case fieldNum == 1 && wireType == wireVarint:
			v, n := readVarint(remaining)
			payload.SequenceID = v
			cursor += n
		case fieldNum == 2 && wireType == wireBytes:
			sub, n := sliceBytes(remaining)
			payload.Sender = parseSenderInfo(sub)
			cursor += n
		case fieldNum == 3 && wireType == wireVarint:
			v, n := readVarint(remaining)
			payload.TimestampMs = v
			cursor += n
		case fieldNum == 4 && wireType == wireBytes:
			sub, n := sliceBytes(remaining)
			payload.Message = extractInnerMessage(sub)
			cursor += n
		default:
			cursor += skipField(wireType, remaining)
		}
	}

	return buildChatEvent(channel, payload)
}

// decodeSecondaryChat handles the field-4 path used for party/guild echoes
// (and, per the Field-4 "Me" heuristic, local chat echo).
func decodeSecondaryChat(channel Channel, data []byte) (*ChatEvent, bool) {
	payload := ChatPayload{}
	cursor := 0
	for cursor < len(data) {
		tag, tn := readVarint(data[cursor:])
		if tn == 0 {
			break
		}
		cursor += tn
		fieldNum := tag >> 3
		wireType := byte(tag & 0x7)
		remaining := data[cursor:]

		switch {
		case fieldNum == 2 && wireType == wireVarint:
			v, n := readVarint(remaining)
			channel = channelOverride(v, channel)
			cursor += n
		case fieldNum == 3 && wireType == wireBytes:
			sub, n := sliceBytes(remaining)
			payload.Message = string(sub)
			cursor += n
		default:
			cursor += skipField(wireType, remaining)
		}
	}

	return buildChatEvent(channel, payload)
}

func channelOverride(v uint64, fallback Channel) Channel {
	switch v {
	case 3:
		return ChannelParty
	case 4:
		return ChannelGuild
	default:
		return fallback
	}
}

// extractInnerMessage unwraps the nested message wrapper (tag 0x1A / field 3,
// wire type 2) carried inside the primary chat path's field-4 sub-message.
func extractInnerMessage(data []byte) string {
	cursor := 0
	for cursor < len(data) {
		tag, tn := readVarint(data[cursor:])
		if tn == 0 {
			break
		}
		cursor += tn
		fieldNum := tag >> 3
		wireType := byte(tag & 0x7)
		remaining := data[cursor:]

		if fieldNum == 3 && wireType == wireBytes {
			sub, _ := sliceBytes(remaining)
			return string(sub)
		}
		cursor += skipField(wireType, remaining)
	}
	return ""
}

func parseSenderInfo(data []byte) SenderInfo {
	var s SenderInfo
	cursor := 0
	for cursor < len(data) {
		tag, tn := readVarint(data[cursor:])
		if tn == 0 {
			break
		}
		cursor += tn
		fieldNum := tag >> 3
		wireType := byte(tag & 0x7)
		remaining := data[cursor:]

		switch {
		case fieldNum == 1 && wireType == wireVarint:
			v, n := readVarint(remaining)
			s.UID = v
			cursor += n
		case fieldNum == 2 && wireType == wireBytes:
			sub, n := sliceBytes(remaining)
			s.Nickname = string(sub)
			cursor += n
		case fieldNum == 3 && wireType == wireVarint:
			v, n := readVarint(remaining)
			s.ClassID = v
			cursor += n
		case fieldNum == 4 && wireType == wireVarint:
			v, n := readVarint(remaining)
			s.Status = v
			cursor += n
		case fieldNum == 5 && wireType == wireVarint:
			v, n := readVarint(remaining)
			s.Level = v
			cursor += n
		case fieldNum == 8 && wireType == wireVarint:
			v, n := readVarint(remaining)
			s.Blocked = v == 1
			cursor += n
		default:
			cursor += skipField(wireType, remaining)
		}
	}
	return s
}

func buildChatEvent(channel Channel, payload ChatPayload) (*ChatEvent, bool) {
	if payload.Message == "" || payload.Sender.Blocked {
		return nil, false
	}

	nickname := payload.Sender.Nickname
	if payload.Sender.UID == 0 && nickname == "" {
		// Local-echo heuristic: the client's own outgoing chat carries no
		// sender block. This can also mislabel a server broadcast that
		// happens to share the field-4 path with no sender info attached.
		nickname = "Me"
	}

	return &ChatEvent{
		PID:         nextPID(),
		Channel:     channel,
		Nickname:    nickname,
		UID:         payload.Sender.UID,
		ClassID:     payload.Sender.ClassID,
		Level:       payload.Sender.Level,
		SequenceID:  payload.SequenceID,
		TimestampMs: payload.TimestampMs,
		Message:     payload.Message,
	}, true
}

// sliceBytes reads a length-delimited value (the length varint plus its
// payload) and returns the payload bytes and the total bytes consumed.
func sliceBytes(data []byte) ([]byte, int) {
	length, n := readVarint(data)
	end := n + int(length)
	if end > len(data) {
		end = len(data)
	}
	return data[n:end], end
}

// decodeEntityBlock is the generalized best-effort decode described in
// DESIGN.md: the real wire format for recruitment posts and profile-asset
// updates is undocumented, so this follows the same tag-numbering
// convention parseSenderInfo uses (8, 18, 24, 32, 40, ...) and picks
// RecruitEvent vs. AssetEvent by which fields are actually present.
func decodeEntityBlock(data []byte) (Event, bool) {
	fields := map[uint64][]byte{}
	ints := map[uint64]uint64{}

	cursor := 0
	for cursor < len(data) {
		tag, tn := readVarint(data[cursor:])
		if tn == 0 {
			break
		}
		cursor += tn
		fieldNum := tag >> 3
		wireType := byte(tag & 0x7)
		remaining := data[cursor:]

		switch wireType {
		case wireBytes:
			sub, n := sliceBytes(remaining)
			fields[fieldNum] = sub
			cursor += n
		case wireVarint:
			v, n := readVarint(remaining)
			ints[fieldNum] = v
			cursor += n
		default:
			cursor += skipField(wireType, remaining)
		}
	}

	// Field 3 only shows up on the asset path (a snapshot URL); nothing on
	// the recruit path uses it, so its presence disambiguates the two.
	if snapshot, ok := fields[3]; ok {
		ev := &AssetEvent{
			PID:           nextPID(),
			UID:           ints[1],
			SnapshotURL:   string(snapshot),
			HalflengthURL: string(fields[4]),
			StatusText:    string(fields[5]),
			TimestampMs:   ints[8],
		}
		return Event{Asset: ev}, true
	}

	if desc, ok := fields[4]; ok {
		ev := &RecruitEvent{
			PID:            nextPID(),
			PartyID:        ints[1],
			RecruitID:      ints[5],
			LeaderNickname: string(fields[2]),
			Description:    string(desc),
			MemberCount:    ints[6],
			MaxMembers:     ints[7],
			TimestampMs:    ints[8],
		}
		return Event{Recruit: ev}, true
	}

	return Event{}, false
}
