package protocol

import "github.com/resonance-relay/sniffer/logging"

// wire types.
const (
	wireVarint = 0
	wire64     = 1
	wireBytes  = 2
	wire32     = 5
)

// Stage1Split performs the first decode pass over one drained application
// frame. It requires the frame to open with tag byte 0x0A (field 1, wire
// type 2, the outer chat-frame wrapper); anything else is not a chat frame
// at all and is rejected outright.
//
// Unknown field numbers encountered while walking the frame are recorded
// into fields and logged the first time each one is seen, so a new field
// introduced by a client/server patch shows up in logs without needing a
// code change to notice it.
func Stage1Split(data []byte, fields *DiscoveredFields, log logging.L) (*SplitPayload, bool) {
	if len(data) == 0 || data[0] != 0x0A {
		return nil, false
	}

	totalLen, n := readVarint(data[1:])
	cursor := 1 + n
	end := cursor + int(totalLen)
	if end > len(data) {
		end = len(data)
	}

	out := &SplitPayload{Channel: ChannelWorld}
	sawChat := false

	for cursor < end {
		tag, tn := readVarint(data[cursor:end])
		if tn == 0 {
			break
		}
		cursor += tn
		fieldNum := uint32(tag >> 3)
		wireType := byte(tag & 0x7)

		remaining := data[cursor:end]

		switch wireType {
		case wireBytes:
			length, ln := readVarint(remaining)
			valStart := cursor + ln
			valEnd := valStart + int(length)
			if valEnd > end {
				valEnd = end
			}
			sub := data[valStart:valEnd]
			cursor = valEnd

			switch fieldNum {
			case 2, 4:
				out.ChatBlocks = append(out.ChatBlocks, ChatBlock{FieldNum: fieldNum, Data: sub})
				sawChat = true
			default:
				out.EntityBlock = sub
				noteUnknown(fields, fieldNum, log)
			}

		case wireVarint:
			value, vn := readVarint(remaining)
			cursor += vn
			switch fieldNum {
			case 1, 2:
				out.Channel = channelFromVarint(value)
			default:
				noteUnknown(fields, fieldNum, log)
			}

		default:
			cursor += skipField(wireType, remaining)
			noteUnknown(fields, fieldNum, log)
		}
	}

	if !sawChat {
		return nil, false
	}
	return out, true
}

func noteUnknown(fields *DiscoveredFields, fieldNum uint32, log logging.L) {
	if fields == nil {
		return
	}
	if fields.Note(fieldNum) && log != nil {
		log.Debugf("observed new protocol field number: %d\n", fieldNum)
	}
}
