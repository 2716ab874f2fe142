package ble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildAdvertisingBytes(pduHeader, length byte, addr [6]byte, adStructs [][]byte) []byte {
	body := []byte{
		byte(AdvertisingAccessAddress), byte(AdvertisingAccessAddress >> 8),
		byte(AdvertisingAccessAddress >> 16), byte(AdvertisingAccessAddress >> 24),
		pduHeader, length,
	}
	body = append(body, addr[:]...)
	for _, s := range adStructs {
		body = append(body, byte(len(s)))
		body = append(body, s...)
	}
	return append(body, 0, 0, 0) // CRC placeholder
}

func TestParsePacketAdvInd(t *testing.T) {
	addr := [6]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x11}
	data := buildAdvertisingBytes(0x00, 5, addr, [][]byte{{0x02, 0x01, 0x06}})

	pkt, err := ParsePacket(data, 2402)
	require.NoError(t, err)
	require.Equal(t, uint32(AdvertisingAccessAddress), pkt.AccessAddr)
	require.NotNil(t, pkt.Advertisement)
	require.Equal(t, AdvInd, pkt.Advertisement.PDUType)
	require.Equal(t, "11:00:ef:be:ad:de", pkt.Advertisement.Address.String())
	require.Len(t, pkt.Advertisement.AdStructs, 1)
	require.Equal(t, []byte{0x02, 0x01, 0x06}, pkt.Advertisement.AdStructs[0].Bytes)
}

func TestParsePacketHeaderFlags(t *testing.T) {
	addr := [6]byte{1, 2, 3, 4, 5, 6}
	data := buildAdvertisingBytes(0xF0|byte(ScanRsp), 0, addr, nil)

	pkt, err := ParsePacket(data, 2402)
	require.NoError(t, err)
	require.Equal(t, ScanRsp, pkt.Advertisement.PDUType)
	require.True(t, pkt.Advertisement.Flags.RFU)
	require.True(t, pkt.Advertisement.Flags.ChSel)
	require.True(t, pkt.Advertisement.Flags.TxAdd)
	require.True(t, pkt.Advertisement.Flags.RxAdd)
}

func TestParsePacketUnimplementedAccessAddress(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0, 0, 0, 0, 0}
	pkt, err := ParsePacket(data, 2402)
	require.NoError(t, err)
	require.Nil(t, pkt.Advertisement)
	require.Equal(t, uint32(0x04030201), pkt.AccessAddr)
}

func TestParsePacketTooShort(t *testing.T) {
	_, err := ParsePacket(make([]byte, 4), 2402)
	require.Error(t, err)
}

func TestParsePacketTruncatedAdStruct(t *testing.T) {
	addr := [6]byte{1, 2, 3, 4, 5, 6}
	data := buildAdvertisingBytes(0x00, 0, addr, nil)
	// Insert a dangling ad-struct length byte that claims more bytes than
	// remain, ahead of a fresh CRC placeholder.
	data = append(data[:len(data)-3], 0xFF, 0, 0, 0)

	_, err := ParsePacket(data, 2402)
	require.Error(t, err)
}

func TestMacAddressStringRendersMSBFirst(t *testing.T) {
	m := MacAddress{bytes: [6]byte{0x11, 0x00, 0xef, 0xbe, 0xad, 0xde}}
	require.Equal(t, "de:ad:be:ef:00:11", m.String())
}

func TestVerifyCRCRoundTrip(t *testing.T) {
	body := []byte{0x12, 0x34, 0x56, 0x78}
	sum := crc24(body)
	crc := [3]byte{byte(sum), byte(sum >> 8), byte(sum >> 16)}
	require.True(t, VerifyCRC(body, crc))
	crc[0] ^= 0xFF
	require.False(t, VerifyCRC(body, crc))
}
