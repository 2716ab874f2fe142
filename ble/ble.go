// Package ble parses the BLE advertising PDU layer recovered by bitops: the
// advertising access address, PDU header, device address, and TLV
// advertising-data structures, per SPEC_FULL §4.6.
package ble

import "fmt"

// AdvertisingAccessAddress is the fixed access address for BLE advertising
// channel packets.
const AdvertisingAccessAddress = 0x8E89BED6

// PDUType is the low nibble of the advertising PDU header byte.
type PDUType int

const (
	AdvInd PDUType = iota
	AdvDirectInd
	AdvNonconnInd
	ScanReq
	ScanRsp
	ConnectReq
	AdvScanInd
	Unknown
)

// pduTypeValue pairs a PDUType with the raw nibble, which is kept for an
// out-of-range PDU type.
type pduTypeValue struct {
	kind PDUType
	raw  byte
}

func pduTypeFromNibble(b byte) pduTypeValue {
	switch b & 0x0F {
	case 0:
		return pduTypeValue{kind: AdvInd}
	case 1:
		return pduTypeValue{kind: AdvDirectInd}
	case 2:
		return pduTypeValue{kind: AdvNonconnInd}
	case 3:
		return pduTypeValue{kind: ScanReq}
	case 4:
		return pduTypeValue{kind: ScanRsp}
	case 5:
		return pduTypeValue{kind: ConnectReq}
	case 6:
		return pduTypeValue{kind: AdvScanInd}
	default:
		return pduTypeValue{kind: Unknown, raw: b & 0x0F}
	}
}

func (p PDUType) String() string {
	switch p {
	case AdvInd:
		return "ADV_IND"
	case AdvDirectInd:
		return "ADV_DIRECT_IND"
	case AdvNonconnInd:
		return "ADV_NONCONN_IND"
	case ScanReq:
		return "SCAN_REQ"
	case ScanRsp:
		return "SCAN_RSP"
	case ConnectReq:
		return "CONNECT_REQ"
	case AdvScanInd:
		return "ADV_SCAN_IND"
	default:
		return "Unknown"
	}
}

// HeaderFlags are the upper nibble of the advertising PDU header byte, in
// bit order RFU, ChSel, TxAdd, RxAdd (bit 4 through bit 7).
type HeaderFlags struct {
	RFU   bool
	ChSel bool
	TxAdd bool
	RxAdd bool
}

func headerFlagsFromByte(b byte) HeaderFlags {
	return HeaderFlags{
		RFU:   b&0x10 != 0,
		ChSel: b&0x20 != 0,
		TxAdd: b&0x40 != 0,
		RxAdd: b&0x80 != 0,
	}
}

// MacAddress is six bytes stored least-significant-byte-first, rendered
// colon-separated with most-significant-byte first.
type MacAddress struct {
	bytes [6]byte
}

func (m MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		m.bytes[5], m.bytes[4], m.bytes[3], m.bytes[2], m.bytes[1], m.bytes[0])
}

// Bytes returns the six backing bytes, least-significant-byte first.
func (m MacAddress) Bytes() [6]byte { return m.bytes }

// AdStructure is one TLV advertising-data structure.
type AdStructure struct {
	Bytes []byte
}

// Advertisement is a fully decoded advertising channel PDU.
type Advertisement struct {
	PDUType    PDUType
	PDUTypeRaw byte // only meaningful when PDUType == Unknown
	Flags      HeaderFlags
	Length     byte
	Address    MacAddress
	AdStructs  []AdStructure
}

func (a Advertisement) String() string {
	name := a.PDUType.String()
	if a.PDUType == Unknown {
		name = fmt.Sprintf("Unknown(0x%x)", a.PDUTypeRaw)
	}
	return fmt.Sprintf("type=%-20s len=%d\taddr=%s", name, a.Length, a.Address)
}

// Bluetooth is the recovered link-layer packet: either a decoded
// Advertisement or an Unimplemented access address.
type Bluetooth struct {
	AccessAddr    uint32
	Advertisement *Advertisement // nil when AccessAddr != AdvertisingAccessAddress
	CRC           [3]byte
	Remain        []byte
	FreqMHz       int
}

func (b Bluetooth) String() string {
	if b.Advertisement != nil {
		return b.Advertisement.String()
	}
	return fmt.Sprintf("Unimplemented(%x)", b.AccessAddr)
}

// ErrorKind classifies a packet-parse failure (ProcessFail::Bluetooth).
type ErrorKind int

const (
	_ ErrorKind = iota
	ErrTooShort
	ErrTruncatedAdStruct
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTooShort:
		return "TooShort"
	case ErrTruncatedAdStruct:
		return "TruncatedAdStruct"
	default:
		return "Unknown"
	}
}

// ParseError is returned by ParsePacket.
type ParseError struct {
	Kind   ErrorKind
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("ble: %s: %s", e.Kind, e.Reason) }

// ParsePacket decodes bytes (as recovered by bitops.BitsToPacket) into a
// Bluetooth packet, per SPEC_FULL §4.6. bytes must be at least 9 long: 4
// bytes access address, plus at least 5 more, with the final 3 bytes
// stripped off as the (unverified) CRC suffix.
func ParsePacket(bytes []byte, freqMHz int) (*Bluetooth, error) {
	if len(bytes) < 9 {
		return nil, &ParseError{Kind: ErrTooShort, Reason: "fewer than 9 bytes"}
	}

	body := bytes[:len(bytes)-3]
	var crc [3]byte
	copy(crc[:], bytes[len(bytes)-3:])

	aa := uint32(body[0]) | uint32(body[1])<<8 | uint32(body[2])<<16 | uint32(body[3])<<24

	pkt := &Bluetooth{AccessAddr: aa, CRC: crc, FreqMHz: freqMHz}

	if aa != AdvertisingAccessAddress {
		return pkt, nil
	}

	rest := body[4:]
	if len(rest) < 2+6 {
		return nil, &ParseError{Kind: ErrTooShort, Reason: "advertising header/address truncated"}
	}

	header := rest[0]
	length := rest[1]
	pt := pduTypeFromNibble(header)
	flags := headerFlagsFromByte(header)

	var addr MacAddress
	copy(addr.bytes[:], rest[2:8])

	adv := &Advertisement{
		PDUType:    pt.kind,
		PDUTypeRaw: pt.raw,
		Flags:      flags,
		Length:     length,
		Address:    addr,
	}

	cursor := rest[8:]
	for len(cursor) > 0 {
		n := int(cursor[0])
		cursor = cursor[1:]
		if n > len(cursor) {
			return nil, &ParseError{Kind: ErrTruncatedAdStruct, Reason: "ad-structure length exceeds remaining bytes"}
		}
		adv.AdStructs = append(adv.AdStructs, AdStructure{Bytes: append([]byte(nil), cursor[:n]...)})
		cursor = cursor[n:]
	}

	pkt.Advertisement = adv
	pkt.Remain = cursor
	return pkt, nil
}
