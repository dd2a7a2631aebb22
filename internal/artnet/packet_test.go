package artnet

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildDMXPacket constructs a raw ArtDMX datagram for tests.
func buildDMXPacket(universe int, data []byte) []byte {
	pkt := make([]byte, headerSize+len(data))
	copy(pkt, artNetID)
	binary.LittleEndian.PutUint16(pkt[opcodeOffset:], opDMX)
	binary.BigEndian.PutUint16(pkt[10:], 14) // protocol version
	pkt[sequenceOffset] = 1
	binary.LittleEndian.PutUint16(pkt[universeOffset:], uint16(universe))
	binary.BigEndian.PutUint16(pkt[lengthOffset:], uint16(len(data)))
	copy(pkt[headerSize:], data)
	return pkt
}

func TestParsePacket(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name: "valid full universe",
			data: buildDMXPacket(0, make([]byte, 512)),
		},
		{
			name: "valid short payload",
			data: buildDMXPacket(3, []byte{10, 20, 30}),
		},
		{
			name:    "too short",
			data:    []byte("Art-Net\x00"),
			wantErr: ErrPacketTooShort,
		},
		{
			name:    "empty",
			data:    nil,
			wantErr: ErrPacketTooShort,
		},
		{
			name: "bad signature",
			data: func() []byte {
				p := buildDMXPacket(0, []byte{1})
				p[0] = 'X'
				return p
			}(),
			wantErr: ErrBadSignature,
		},
		{
			name: "declares more data than carried",
			data: func() []byte {
				p := buildDMXPacket(0, []byte{1, 2, 3})
				binary.BigEndian.PutUint16(p[lengthOffset:], 4)
				return p
			}(),
			wantErr: ErrTruncated,
		},
		{
			name: "wrong opcode",
			data: func() []byte {
				p := buildDMXPacket(0, []byte{1})
				binary.LittleEndian.PutUint16(p[opcodeOffset:], 0x2000) // ArtPoll
				return p
			}(),
			wantErr: ErrNotDMX,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkt, err := ParsePacket(tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParsePacket() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePacket() error = %v", err)
			}
			if pkt == nil {
				t.Fatal("ParsePacket() returned nil packet")
			}
		})
	}
}

func TestParsePacket_Fields(t *testing.T) {
	data := buildDMXPacket(0x0102, []byte{255, 128, 0, 64})

	pkt, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}

	// Universe is little-endian: low byte 0x02, high byte 0x01
	if pkt.Universe != 0x0102 {
		t.Errorf("Universe = 0x%04x, want 0x0102", pkt.Universe)
	}
	if pkt.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", pkt.Sequence)
	}
	if pkt.Frame[0] != 255 || pkt.Frame[1] != 128 || pkt.Frame[3] != 64 {
		t.Errorf("Frame data = %v, want [255 128 0 64 ...]", pkt.Frame[:4])
	}
}

func TestParsePacket_ZeroPadsShortPayload(t *testing.T) {
	pkt, err := ParsePacket(buildDMXPacket(0, []byte{9, 8, 7}))
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}

	if pkt.Frame[2] != 7 {
		t.Errorf("Frame[2] = %d, want 7", pkt.Frame[2])
	}
	for i := 3; i < UniverseSize; i++ {
		if pkt.Frame[i] != 0 {
			t.Fatalf("Frame[%d] = %d, want 0 (zero padding)", i, pkt.Frame[i])
		}
	}
}

func TestParsePacket_TruncatesLongPayload(t *testing.T) {
	// 600 bytes of data with a declared length of 600
	long := make([]byte, 600)
	for i := range long {
		long[i] = 0xAA
	}
	pkt, err := ParsePacket(buildDMXPacket(0, long))
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}
	if pkt.Frame[UniverseSize-1] != 0xAA {
		t.Errorf("Frame[511] = %d, want 0xAA", pkt.Frame[UniverseSize-1])
	}
}

func TestParsePacket_DeclaredLengthBoundsPayload(t *testing.T) {
	// Datagram carries 4 data bytes but declares only 2; the extra
	// bytes are ignored.
	data := buildDMXPacket(0, []byte{1, 2, 3, 4})
	binary.BigEndian.PutUint16(data[lengthOffset:], 2)

	pkt, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("ParsePacket() error = %v", err)
	}
	if pkt.Frame[1] != 2 {
		t.Errorf("Frame[1] = %d, want 2", pkt.Frame[1])
	}
	if pkt.Frame[2] != 0 {
		t.Errorf("Frame[2] = %d, want 0 (beyond declared length)", pkt.Frame[2])
	}
}

func TestParsePacket_RejectsTruncatedDatagram(t *testing.T) {
	// A full-universe declaration backed by only 4 bytes of data must
	// not produce a frame.
	data := buildDMXPacket(0, []byte{1, 2, 3, 4})
	binary.BigEndian.PutUint16(data[lengthOffset:], 512)

	pkt, err := ParsePacket(data)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("ParsePacket() error = %v, want ErrTruncated", err)
	}
	if pkt != nil {
		t.Errorf("ParsePacket() = %+v, want nil packet", pkt)
	}
}

func TestFrame_Value(t *testing.T) {
	var f Frame
	f[0] = 11
	f[511] = 22

	tests := []struct {
		name    string
		channel int
		want    uint8
		wantOK  bool
	}{
		{"first channel", 1, 11, true},
		{"last channel", 512, 22, true},
		{"zero channel", 0, 0, false},
		{"past end", 513, 0, false},
		{"negative", -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := f.Value(tt.channel)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Value(%d) = (%d, %v), want (%d, %v)",
					tt.channel, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
