// Package framer reconstructs the game's length-prefixed application frames
// from per-flow TCP payload bytes, in capture order, on a single goroutine.
package framer

import (
	"encoding/binary"

	"github.com/resonance-relay/sniffer/memview"
)

const (
	minFrameLen = 2
	maxFrameLen = 8192

	controlHeartbeat = 0x0004
	controlBulkSync  = 0x8002
)

// FlowKey identifies a unidirectional TCP flow.
type FlowKey [6]byte

// Frame is one drained, control-frame-filtered application frame ready for
// the protocol decoder.
type Frame struct {
	Flow FlowKey
	Data []byte
}

// Reassembler holds one stream buffer per flow and turns appended payload
// bytes into complete application frames, resyncing on malformed lengths.
type Reassembler struct {
	flows map[FlowKey]*memview.MemView
}

func NewReassembler() *Reassembler {
	return &Reassembler{flows: make(map[FlowKey]*memview.MemView)}
}

// Push appends payload to the named flow's buffer and drains every complete
// frame it now contains. A dropped control frame (heartbeat) is simply
// omitted from the result; a bulk-sync frame additionally removes the flow's
// buffer so the next payload starts a fresh stream.
func (r *Reassembler) Push(flow FlowKey, payload []byte) []Frame {
	buf, ok := r.flows[flow]
	if !ok {
		mv := memview.New(nil)
		buf = &mv
		r.flows[flow] = buf
	}
	buf.Append(memview.New(append([]byte(nil), payload...)))

	var out []Frame
	for {
		frame, reset, drained := r.pull(buf)
		if reset {
			delete(r.flows, flow)
			return out
		}
		if !drained {
			return out
		}
		if isControlFrame(frame, controlHeartbeat) {
			continue
		}
		if isControlFrame(frame, controlBulkSync) {
			delete(r.flows, flow)
			return out
		}
		out = append(out, Frame{Flow: flow, Data: frame})
	}
}

// pull attempts to drain one complete frame from buf. reset reports that the
// buffer was cleared due to a malformed length and pull should not be called
// again until more data arrives.
func (r *Reassembler) pull(buf *memview.MemView) (frame []byte, reset bool, drained bool) {
	if buf.Len() < minFrameLen {
		return nil, false, false
	}

	length := int(readLittleEndianUint16(buf, 0))
	if length < minFrameLen || length > maxFrameLen {
		buf.Clear()
		return nil, true, false
	}

	if buf.Len() < int64(length) {
		return nil, false, false
	}

	drainedView := buf.SubView(0, int64(length))
	rest := buf.SubView(int64(length), buf.Len())
	*buf = rest.DeepCopy()

	return []byte(drainedView.String()), false, true
}

func readLittleEndianUint16(mv *memview.MemView, offset int64) uint16 {
	b := []byte{mv.GetByte(offset), mv.GetByte(offset + 1)}
	return binary.LittleEndian.Uint16(b)
}

func isControlFrame(frame []byte, want uint16) bool {
	if len(frame) < 6 {
		return false
	}
	return binary.BigEndian.Uint16(frame[4:6]) == want
}

// DropFlow removes a flow's buffer, e.g. when the capture layer observes the
// underlying TCP connection close.
func (r *Reassembler) DropFlow(flow FlowKey) {
	delete(r.flows, flow)
}
