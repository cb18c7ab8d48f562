package capture

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTCPPacket(t *testing.T, srcIP, dstIP string, srcPort, dstPort uint16, payload []byte) gopacket.Packet {
	t.Helper()

	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(srcIP).To4(),
		DstIP:    net.ParseIP(dstIP).To4(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     1,
		Window:  1024,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ip, tcp, gopacket.Payload(payload)))

	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeIPv4, gopacket.Default)
}

func TestEngine_ExtractPayload_MatchesConfiguredPort(t *testing.T) {
	e := NewEngine(NewConfig("any", 5003), nil)
	pkt := buildTCPPacket(t, "10.0.0.5", "10.0.0.9", 51000, 5003, []byte("hello"))

	payload, flow, ok := e.extractPayload(pkt)
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), payload)
	assert.NotEqual(t, [6]byte{}, flow)
}

func TestEngine_ExtractPayload_IgnoresOtherPorts(t *testing.T) {
	e := NewEngine(NewConfig("any", 5003), nil)
	pkt := buildTCPPacket(t, "10.0.0.5", "10.0.0.9", 51000, 443, []byte("hello"))

	_, _, ok := e.extractPayload(pkt)
	assert.False(t, ok)
}

func TestEngine_ExtractPayload_IgnoresEmptyACK(t *testing.T) {
	e := NewEngine(NewConfig("any", 5003), nil)
	pkt := buildTCPPacket(t, "10.0.0.5", "10.0.0.9", 51000, 5003, nil)

	_, _, ok := e.extractPayload(pkt)
	assert.False(t, ok)
}

func TestBPFFilterFor(t *testing.T) {
	assert.Equal(t, "tcp port 5003", bpfFilterFor(5003))
}

func TestFlowKeyFor_DistinguishesDirection(t *testing.T) {
	e := NewEngine(NewConfig("any", 5003), nil)
	inbound := buildTCPPacket(t, "10.0.0.5", "10.0.0.9", 5003, 51000, []byte("a"))
	outbound := buildTCPPacket(t, "10.0.0.9", "10.0.0.5", 51000, 5003, []byte("a"))

	_, flowIn, _ := e.extractPayload(inbound)
	_, flowOut, _ := e.extractPayload(outbound)
	assert.NotEqual(t, flowIn, flowOut)
}
