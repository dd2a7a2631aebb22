package artnet

import (
	"bytes"
	"encoding/binary"
)

// Art-Net wire format constants.
//
// An ArtDMX packet is an 18-byte header followed by up to 512 bytes of
// channel data:
//
//	offset 0:  "Art-Net\0" identifier (8 bytes)
//	offset 8:  opcode, little-endian (0x5000 = ArtDMX)
//	offset 10: protocol version, big-endian (ignored)
//	offset 12: sequence number
//	offset 13: physical input port
//	offset 14: universe, little-endian (low byte first)
//	offset 16: data length, big-endian
//	offset 18: channel data
const (
	// UniverseSize is the number of channels in a DMX512 universe.
	UniverseSize = 512

	// MinChannel and MaxChannel bound the 1-based channel numbering used
	// at every public boundary.
	MinChannel = 1
	MaxChannel = UniverseSize

	// headerSize is the fixed ArtDMX header length.
	headerSize = 18

	// opDMX is the ArtDMX opcode.
	opDMX = 0x5000

	opcodeOffset   = 8
	sequenceOffset = 12
	physicalOffset = 13
	universeOffset = 14
	lengthOffset   = 16
)

// artNetID is the 8-byte identifier that opens every Art-Net packet.
var artNetID = []byte("Art-Net\x00")

// Frame is a complete DMX512 universe snapshot.
//
// Index 0 holds channel 1. Use Value for 1-based access.
type Frame [UniverseSize]uint8

// Value returns the value of a 1-based channel. The second return value
// is false when the channel is outside 1..512.
func (f Frame) Value(channel int) (uint8, bool) {
	if channel < MinChannel || channel > MaxChannel {
		return 0, false
	}
	return f[channel-1], true
}

// DMXPacket is a parsed ArtDMX packet.
type DMXPacket struct {
	// Universe is the 15-bit port address the packet targets.
	Universe int

	// Sequence orders packets on the wire. Zero means sequencing is disabled.
	Sequence uint8

	// Physical is the sender's input port, informational only.
	Physical uint8

	// Frame holds the channel data, zero-padded or truncated to 512 channels.
	Frame Frame
}

// ParsePacket parses a raw UDP datagram as an ArtDMX packet.
//
// The datagram must carry at least as many data bytes as its declared
// length field promises; a truncated datagram is rejected. The declared
// payload is then normalised to exactly 512 channels: short payloads are
// zero-padded, declarations past 512 truncated. Bytes beyond the
// declared length are ignored.
//
// Parameters:
//   - data: Raw datagram bytes
//
// Returns:
//   - *DMXPacket: Parsed packet
//   - error: ErrPacketTooShort, ErrBadSignature, ErrNotDMX, or ErrTruncated
func ParsePacket(data []byte) (*DMXPacket, error) {
	if len(data) < headerSize {
		return nil, ErrPacketTooShort
	}

	if !bytes.Equal(data[:len(artNetID)], artNetID) {
		return nil, ErrBadSignature
	}

	opcode := binary.LittleEndian.Uint16(data[opcodeOffset:])
	if opcode != opDMX {
		return nil, ErrNotDMX
	}

	pkt := &DMXPacket{
		Universe: int(binary.LittleEndian.Uint16(data[universeOffset:])),
		Sequence: data[sequenceOffset],
		Physical: data[physicalOffset],
	}

	declared := int(binary.BigEndian.Uint16(data[lengthOffset:]))
	if len(data) < headerSize+declared {
		return nil, ErrTruncated
	}
	payload := data[headerSize : headerSize+declared]
	if len(payload) > UniverseSize {
		payload = payload[:UniverseSize]
	}

	copy(pkt.Frame[:], payload)

	return pkt, nil
}
