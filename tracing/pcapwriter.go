package tracing

import (
	"io"
	"net"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"

	"github.com/sarchlab/netsim/sim"
)

const pcapSnapLen = 65535

// PCAPWriter renders packet records as raw IP frames in a pcap stream. The
// IP and transport headers are synthesized from the record; the payload is
// zero-filled to the packet size.
//
// Only records of packets that touched the wire are written: transmissions
// handed to a link and arrivals.
type PCAPWriter struct {
	w       *pcapgo.Writer
	closer  io.Closer
	payload []byte
	buf     gopacket.SerializeBuffer
}

// NewPCAPWriter writes the pcap file header to w and returns the writer.
func NewPCAPWriter(w io.Writer) (*PCAPWriter, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(pcapSnapLen, layers.LinkTypeRaw); err != nil {
		return nil, err
	}

	p := &PCAPWriter{
		w:   pw,
		buf: gopacket.NewSerializeBuffer(),
	}

	if c, ok := w.(io.Closer); ok {
		p.closer = c
	}

	return p, nil
}

func onWire(rec Record) bool {
	if rec.Interface == sim.NoInterface {
		return false
	}

	switch rec.Kind {
	case KindSend:
		return rec.Outcome == sim.OutcomeDelivered
	case KindReceive:
		return true
	default:
		return false
	}
}

func (p *PCAPWriter) Write(rec Record) error {
	if !onWire(rec) {
		return nil
	}

	data, err := p.frame(rec)
	if err != nil {
		return err
	}

	return p.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     time.Unix(0, 0).Add(time.Duration(rec.Time * float64(time.Second))),
		CaptureLength: len(data),
		Length:        len(data),
	}, data)
}

func (p *PCAPWriter) frame(rec Record) ([]byte, error) {
	size := rec.PacketSize
	if size > pcapSnapLen-60 {
		size = pcapSnapLen - 60
	}

	if cap(p.payload) < size {
		p.payload = make([]byte, size)
	}

	var (
		network   gopacket.SerializableLayer
		forChecks gopacket.NetworkLayer
	)

	src := net.IP(rec.Src.Addr().AsSlice())
	dst := net.IP(rec.Dst.Addr().AsSlice())

	ipProto := layers.IPProtocolUDP
	if rec.Protocol == sim.Stream {
		ipProto = layers.IPProtocolTCP
	}

	if rec.Dst.Addr().Is4() {
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      sim.DefaultTTL,
			Protocol: ipProto,
			SrcIP:    src.To4(),
			DstIP:    dst.To4(),
		}
		network, forChecks = ip, ip
	} else {
		ip := &layers.IPv6{
			Version:    6,
			HopLimit:   sim.DefaultTTL,
			NextHeader: ipProto,
			SrcIP:      src.To16(),
			DstIP:      dst.To16(),
		}
		network, forChecks = ip, ip
	}

	var transport gopacket.SerializableLayer

	if rec.Protocol == sim.Stream {
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(rec.Src.Port()),
			DstPort: layers.TCPPort(rec.Dst.Port()),
			Seq:     uint32(rec.PacketID),
			PSH:     true,
			ACK:     true,
			Window:  65535,
		}
		if err := tcp.SetNetworkLayerForChecksum(forChecks); err != nil {
			return nil, err
		}

		transport = tcp
	} else {
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(rec.Src.Port()),
			DstPort: layers.UDPPort(rec.Dst.Port()),
		}
		if err := udp.SetNetworkLayerForChecksum(forChecks); err != nil {
			return nil, err
		}

		transport = udp
	}

	err := gopacket.SerializeLayers(p.buf,
		gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true},
		network, transport, gopacket.Payload(p.payload[:size]))
	if err != nil {
		return nil, err
	}

	return p.buf.Bytes(), nil
}

// Flush is a no-op; pcapgo writes straight through.
func (p *PCAPWriter) Flush() error {
	return nil
}

// Close closes the underlying writer if it is an io.Closer.
func (p *PCAPWriter) Close() error {
	if p.closer == nil {
		return nil
	}

	return p.closer.Close()
}
