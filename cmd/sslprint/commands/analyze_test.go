package commands

import (
	"bytes"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"

	"github.com/vulntor/sslprint/pkg/output"
)

var captureStart = time.Unix(1700000000, 0).UTC()

func chromeHello() []byte {
	var hs cryptobyte.Builder
	hs.AddUint8(1)
	hs.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddUint16(0x0303)
		b.AddUint32(uint32(captureStart.Unix()) - 3)
		b.AddBytes(bytes.Repeat([]byte{0x11}, 28))
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {})
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddUint16(0xc02b)
			b.AddUint16(0xc02f)
		})
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) { b.AddUint8(0) })
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, ext := range []uint16{0x0000, 0xff01} {
				b.AddUint16(ext)
				b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {})
			}
		})
	})

	var rec cryptobyte.Builder
	rec.AddUint8(22)
	rec.AddUint16(0x0301)
	rec.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(hs.BytesOrPanic()) })
	return rec.BytesOrPanic()
}

func tcpFrame(t *testing.T, srcPort, dstPort uint16, seq uint32, syn bool, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(192, 0, 2, 10),
		DstIP:    net.IPv4(198, 51, 100, 7),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     seq,
		SYN:     syn,
		ACK:     !syn,
		Window:  65535,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(payload)))
	return buf.Bytes()
}

// writeCapture stores a TLS connection to port 443 and an HTTP request to
// port 80.
func writeCapture(t *testing.T) string {
	t.Helper()
	frames := [][]byte{
		tcpFrame(t, 51514, 443, 1000, true, nil),
		tcpFrame(t, 51514, 443, 1001, false, chromeHello()),
		tcpFrame(t, 40000, 80, 7000, true, nil),
		tcpFrame(t, 40000, 80, 7001, false, []byte("GET / HTTP/1.1\r\n\r\n")),
	}

	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeEthernet))
	for i, data := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     captureStart.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return path
}

func decodeObservations(t *testing.T, out string) []output.Observation {
	t.Helper()
	var obs []output.Observation
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var o output.Observation
		require.NoError(t, json.Unmarshal([]byte(line), &o), line)
		obs = append(obs, o)
	}
	return obs
}

func TestAnalyzeJSON(t *testing.T) {
	db := writeCatalog(t, p0fCatalog)
	pcap := writeCapture(t)

	res := run(t, "--db", db, "analyze", "--format", "json", "--run-id", "test-run", pcap)
	require.Equal(t, 0, res.code, res.stderr)

	obs := decodeObservations(t, res.stdout)
	require.Len(t, obs, 1)
	assert.Equal(t, output.ModuleSSLRequest, obs[0].Module)
	assert.Equal(t, "test-run", obs[0].RunID)
	assert.Equal(t, "192.0.2.10:51514", obs[0].Client)
	assert.Equal(t, "198.51.100.7:443", obs[0].Server)
	assert.Equal(t, "Chrome 30+", obs[0].Label)
	assert.Equal(t, "3.3:c02b,c02f:?0,ff01:ver", obs[0].RawSig)
	require.NotNil(t, obs[0].Drift)
	assert.Equal(t, int64(3), *obs[0].Drift)
}

func TestAnalyzeText(t *testing.T) {
	db := writeCatalog(t, p0fCatalog)
	res := run(t, "--db", db, "analyze", "--no-color", writeCapture(t))
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Chrome 30+")
	assert.Contains(t, res.stdout, "raw_sig")
}

func TestAnalyzeStdinAndPortFilter(t *testing.T) {
	db := writeCatalog(t, p0fCatalog)
	data, err := os.ReadFile(writeCapture(t))
	require.NoError(t, err)

	t.Setenv("SSLPRINT_WORKSPACE", filepath.Join(t.TempDir(), "ws"))
	cmd := NewCommand()
	var stdout bytes.Buffer
	cmd.SetIn(bytes.NewReader(data))
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--db", db, "analyze", "--format", "json", "--ports", "8443", "-"})
	require.NoError(t, cmd.Execute())
	assert.Empty(t, strings.TrimSpace(stdout.String()), "port 443 is filtered out")
}

func TestAnalyzeStoresObservations(t *testing.T) {
	db := writeCatalog(t, p0fCatalog)
	dir := t.TempDir()
	sqlitePath := filepath.Join(dir, "obs.db")
	telemetry := filepath.Join(dir, "telemetry.jsonl")

	res := run(t, "--db", db, "analyze", "--format", "json",
		"--sqlite", sqlitePath, "--telemetry", telemetry, writeCapture(t))
	require.Equal(t, 0, res.code, res.stderr)

	assert.FileExists(t, sqlitePath)
	data, err := os.ReadFile(telemetry)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"match_type":"success"`)
}

func TestAnalyzeStoreNeedsWorkspace(t *testing.T) {
	db := writeCatalog(t, p0fCatalog)
	res := run(t, "--no-workspace", "--db", db, "analyze", "--store", writeCapture(t))
	assert.Equal(t, 7, res.code)
	assert.Contains(t, res.stderr, "storage disabled")
}

func TestAnalyzeMissingFile(t *testing.T) {
	res := run(t, "analyze", filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "open capture")
}
