package capture

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// decoder pulls the TCP header and endpoints out of a link-layer frame
// without allocating per packet.
type decoder struct {
	eth  layers.Ethernet
	sll  layers.LinuxSLL
	lo   layers.Loopback
	vlan layers.Dot1Q
	ip4  layers.IPv4
	ip6  layers.IPv6
	tcp  layers.TCP

	parser  *gopacket.DecodingLayerParser
	parser6 *gopacket.DecodingLayerParser // raw IP captures with IPv6 packets
	decoded []gopacket.LayerType
}

func newDecoder(link layers.LinkType) (*decoder, error) {
	d := &decoder{decoded: make([]gopacket.LayerType, 0, 8)}

	switch link {
	case layers.LinkTypeEthernet:
		d.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet,
			&d.eth, &d.vlan, &d.ip4, &d.ip6, &d.tcp)
	case layers.LinkTypeLinuxSLL:
		d.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeLinuxSLL,
			&d.sll, &d.ip4, &d.ip6, &d.tcp)
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		d.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeLoopback,
			&d.lo, &d.ip4, &d.ip6, &d.tcp)
	case layers.LinkTypeRaw, layers.LinkTypeIPv4, layers.LinkTypeIPv6:
		d.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeIPv4, &d.ip4, &d.tcp)
		d.parser6 = gopacket.NewDecodingLayerParser(layers.LayerTypeIPv6, &d.ip6, &d.tcp)
		d.parser6.IgnoreUnsupported = true
	default:
		return nil, fmt.Errorf("capture: unsupported link type %s", link)
	}
	d.parser.IgnoreUnsupported = true
	return d, nil
}

// decode parses data and reports whether it held a TCP segment. src and dst
// are only valid when ok is true.
func (d *decoder) decode(data []byte) (src, dst netip.AddrPort, ok bool) {
	p := d.parser
	if d.parser6 != nil && len(data) > 0 && data[0]>>4 == 6 {
		p = d.parser6
	}
	if err := p.DecodeLayers(data, &d.decoded); err != nil {
		return src, dst, false
	}

	var hasTCP, hasIP4, hasIP6 bool
	for _, lt := range d.decoded {
		switch lt {
		case layers.LayerTypeTCP:
			hasTCP = true
		case layers.LayerTypeIPv4:
			hasIP4 = true
		case layers.LayerTypeIPv6:
			hasIP6 = true
		}
	}
	if !hasTCP || (!hasIP4 && !hasIP6) {
		return src, dst, false
	}

	var srcIP, dstIP []byte
	if hasIP6 {
		srcIP, dstIP = d.ip6.SrcIP, d.ip6.DstIP
	} else {
		srcIP, dstIP = d.ip4.SrcIP, d.ip4.DstIP
	}
	sa, ok1 := netip.AddrFromSlice(srcIP)
	da, ok2 := netip.AddrFromSlice(dstIP)
	if !ok1 || !ok2 {
		return src, dst, false
	}

	src = netip.AddrPortFrom(sa.Unmap(), uint16(d.tcp.SrcPort))
	dst = netip.AddrPortFrom(da.Unmap(), uint16(d.tcp.DstPort))
	return src, dst, true
}
