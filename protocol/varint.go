package protocol

// readVarint decodes a base-128 protobuf varint from the head of data. It
// always returns the number of bytes consumed, even on malformed input, so
// callers can advance their cursor safely without a second bounds check:
//
//   - a well-formed varint (terminator byte with the continuation bit clear
//     observed before the end of data, or before 10 bytes are read) returns
//     the decoded value and its exact byte length.
//   - data that runs out before a terminator, or that exceeds 10 bytes
//     (the maximum length of a 64-bit varint), returns whatever value has
//     been accumulated so far and consumes the bytes actually examined -
//     never more than len(data).
func readVarint(data []byte) (value uint64, n int) {
	for n < len(data) && n < 10 {
		b := data[n]
		value |= uint64(b&0x7F) << (7 * uint(n))
		n++
		if b&0x80 == 0 {
			return value, n
		}
	}
	return value, n
}

// skipField advances past one field's value given its wire type, per the
// standard protobuf skip rules. It never returns a count larger than
// len(data), so the caller's cursor never runs past the enclosing block end
// even on truncated or malformed input.
func skipField(wireType byte, data []byte) int {
	switch wireType {
	case 0: // varint
		_, n := readVarint(data)
		return n
	case 1: // 64-bit
		if len(data) < 8 {
			return len(data)
		}
		return 8
	case 2: // length-delimited
		length, n := readVarint(data)
		end := n + int(length)
		if end > len(data) {
			return len(data)
		}
		return end
	case 5: // 32-bit
		if len(data) < 4 {
			return len(data)
		}
		return 4
	default:
		return len(data)
	}
}
