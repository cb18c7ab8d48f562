// Package capture opens a live packet capture on the game's TCP port and
// forwards each TCP payload, tagged with its flow key, downstream.
package capture

import (
	"context"
	"encoding/binary"
	"strconv"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"

	"github.com/resonance-relay/sniffer/framer"
	"github.com/resonance-relay/sniffer/logging"
)

const defaultSnapLen = 262144

// Payload is one forwarded TCP payload, ready for the reassembler.
type Payload struct {
	Flow framer.FlowKey
	Data []byte
}

// Option configures a Config via the functional-options pattern.
type Option func(*Config)

type Config struct {
	Device   string
	Port     uint16
	BPFilter string
}

func NewConfig(device string, port uint16, opts ...Option) Config {
	c := Config{Device: device, Port: port, BPFilter: bpfFilterFor(port)}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func WithBPFFilter(filter string) Option {
	return func(c *Config) { c.BPFilter = filter }
}

func bpfFilterFor(port uint16) string {
	return "tcp port " + strconv.Itoa(int(port))
}

// Engine owns the live pcap handle and decodes IPv4/TCP framing down to raw
// payload bytes.
type Engine struct {
	cfg Config
	log logging.L
}

func NewEngine(cfg Config, log logging.L) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// Run opens the capture handle and streams decoded TCP payloads on the
// returned channel until ctx is cancelled or a fatal interface error occurs.
// touch is invoked once per forwarded payload, to feed the watchdog.
func (e *Engine) Run(ctx context.Context, touch func()) (<-chan Payload, error) {
	handle, err := pcap.OpenLive(e.cfg.Device, defaultSnapLen, true, pcap.BlockForever)
	if err != nil {
		return nil, errors.Wrapf(err, "open capture device %q", e.cfg.Device)
	}

	if e.cfg.BPFilter != "" {
		if err := handle.SetBPFFilter(e.cfg.BPFilter); err != nil {
			handle.Close()
			return nil, errors.Wrap(err, "set BPF filter")
		}
	}

	out := make(chan Payload, 64)
	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packets := packetSource.Packets()

	go func() {
		defer handle.Close()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case pkt, ok := <-packets:
				if !ok {
					return
				}
				payload, flow, ok := e.extractPayload(pkt)
				if !ok {
					continue
				}
				if touch != nil {
					touch()
				}
				select {
				case out <- Payload{Flow: flow, Data: payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// extractPayload decodes the IPv4 and TCP layers of pkt, returning the TCP
// payload and its flow key when pkt carries traffic to or from the
// configured game port. Decode errors are logged at debug; they and
// non-matching packets are reported via ok=false rather than as an error,
// matching the single-packet-swallow failure semantics of the capture loop.
func (e *Engine) extractPayload(pkt gopacket.Packet) ([]byte, framer.FlowKey, bool) {
	if errLayer := pkt.ErrorLayer(); errLayer != nil && e.log != nil {
		e.log.Debugf("packet decode error: %v\n", errLayer.Error())
	}
	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return nil, framer.FlowKey{}, false
	}
	ip, ok := ipLayer.(*layers.IPv4)
	if !ok {
		return nil, framer.FlowKey{}, false
	}

	tcpLayer := pkt.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return nil, framer.FlowKey{}, false
	}
	tcp, ok := tcpLayer.(*layers.TCP)
	if !ok {
		return nil, framer.FlowKey{}, false
	}

	if uint16(tcp.SrcPort) != e.cfg.Port && uint16(tcp.DstPort) != e.cfg.Port {
		return nil, framer.FlowKey{}, false
	}

	if len(tcp.Payload) == 0 {
		return nil, framer.FlowKey{}, false
	}

	return tcp.Payload, flowKeyFor(ip, tcp), true
}

// flowKeyFor derives a 6-byte key distinguishing this unidirectional flow
// from its reverse direction and from concurrent flows on the host: the
// low byte of each endpoint IP plus both ports.
func flowKeyFor(ip *layers.IPv4, tcp *layers.TCP) framer.FlowKey {
	var key framer.FlowKey
	srcIP := ip.SrcIP.To4()
	dstIP := ip.DstIP.To4()
	if len(srcIP) == 4 {
		key[0] = srcIP[3]
	}
	if len(dstIP) == 4 {
		key[1] = dstIP[3]
	}
	binary.BigEndian.PutUint16(key[2:4], uint16(tcp.SrcPort))
	binary.BigEndian.PutUint16(key[4:6], uint16(tcp.DstPort))
	return key
}
