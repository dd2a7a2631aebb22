package artnet

import "errors"

// Sentinel errors for the artnet package.
var (
	// ErrPacketTooShort indicates a datagram smaller than the Art-Net header.
	ErrPacketTooShort = errors.New("artnet: packet too short")

	// ErrBadSignature indicates the datagram does not carry the Art-Net ID string.
	ErrBadSignature = errors.New("artnet: bad signature")

	// ErrNotDMX indicates an Art-Net packet with an opcode other than ArtDMX.
	ErrNotDMX = errors.New("artnet: not an ArtDMX packet")

	// ErrTruncated indicates a datagram carrying fewer data bytes than its
	// declared length field promises.
	ErrTruncated = errors.New("artnet: datagram shorter than declared length")

	// ErrChannelRange indicates a channel number outside 1..512.
	ErrChannelRange = errors.New("artnet: channel out of range")

	// ErrListenFailed indicates the UDP socket could not be bound.
	ErrListenFailed = errors.New("artnet: listen failed")
)
