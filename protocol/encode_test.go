package protocol

// Minimal protobuf writer helpers used only to build test fixtures; the
// production decoder never needs to encode.

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func tag(fieldNum uint32, wireType byte) uint64 {
	return uint64(fieldNum)<<3 | uint64(wireType)
}

func appendBytesField(buf []byte, fieldNum uint32, data []byte) []byte {
	buf = appendVarint(buf, tag(fieldNum, wireBytes))
	buf = appendVarint(buf, uint64(len(data)))
	return append(buf, data...)
}

func appendVarintField(buf []byte, fieldNum uint32, v uint64) []byte {
	buf = appendVarint(buf, tag(fieldNum, wireVarint))
	return appendVarint(buf, v)
}

// buildSenderInfo encodes a SenderInfo sub-message per the field numbering
// parseSenderInfo expects.
func buildSenderInfo(uid uint64, nickname string, classID, status, level uint64, blocked bool) []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, uid)
	buf = appendBytesField(buf, 2, []byte(nickname))
	buf = appendVarintField(buf, 3, classID)
	buf = appendVarintField(buf, 4, status)
	buf = appendVarintField(buf, 5, level)
	if blocked {
		buf = appendVarintField(buf, 8, 1)
	}
	return buf
}

// buildPrimaryChatBlock encodes one field-2 chat block: sequence id, nested
// SenderInfo, timestamp, and a nested message wrapper carrying the message
// under its own inner tag 0x1A (field 3).
func buildPrimaryChatBlock(seq uint64, sender []byte, tsMs uint64, message string) []byte {
	var inner []byte
	inner = appendBytesField(inner, 3, []byte(message))

	var buf []byte
	buf = appendVarintField(buf, 1, seq)
	buf = appendBytesField(buf, 2, sender)
	buf = appendVarintField(buf, 3, tsMs)
	buf = appendBytesField(buf, 4, inner)
	return buf
}

// buildSecondaryChatBlock encodes one field-4 chat block: an optional
// channel override (tag 0x10 / field 2) followed by the message (tag 0x1A /
// field 3).
func buildSecondaryChatBlock(channelOverride uint64, hasOverride bool, message string) []byte {
	var buf []byte
	if hasOverride {
		buf = appendVarintField(buf, 2, channelOverride)
	}
	buf = appendBytesField(buf, 3, []byte(message))
	return buf
}

// buildFrame wraps one or more chat blocks in the outer field-1 envelope
// Stage1Split expects: tag 0x0A, then a total_len varint, then the field/wire
// pairs making up the frame body.
func buildFrame(channel uint64, hasChannel bool, blocks ...struct {
	FieldNum uint32
	Data     []byte
}) []byte {
	var body []byte
	if hasChannel {
		body = appendVarintField(body, 1, channel)
	}
	for _, b := range blocks {
		body = appendBytesField(body, b.FieldNum, b.Data)
	}

	var frame []byte
	frame = append(frame, 0x0A)
	frame = appendVarint(frame, uint64(len(body)))
	frame = append(frame, body...)
	return frame
}
