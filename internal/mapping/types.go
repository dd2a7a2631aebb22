package mapping

import (
	"strings"
	"time"
)

// DeviceType identifies how an entity is driven over DMX.
//
// The set is closed: every consumer switches exhaustively over these
// values, and TypeUnknown is the explicit "cannot drive this" marker
// rather than an absent case.
type DeviceType string

// Supported device types.
const (
	TypeSwitch    DeviceType = "switch"
	TypeDimmer    DeviceType = "dimmer"
	TypeRGB       DeviceType = "rgb"
	TypeRGBW      DeviceType = "rgbw"
	TypeRGBWW     DeviceType = "rgbww"
	TypeColorTemp DeviceType = "color_temp"
	TypeUnknown   DeviceType = "unknown"
)

// DMX channel bounds, 1-based.
const (
	MinChannel = 1
	MaxChannel = 512
)

// Valid reports whether t is one of the known device types.
func (t DeviceType) Valid() bool {
	switch t {
	case TypeSwitch, TypeDimmer, TypeRGB, TypeRGBW, TypeRGBWW, TypeColorTemp, TypeUnknown:
		return true
	}
	return false
}

// ChannelSpan returns the number of consecutive DMX channels the type
// consumes: a primary channel plus colour component channels for the
// multi-channel types. TypeUnknown consumes none.
func (t DeviceType) ChannelSpan() int {
	switch t {
	case TypeSwitch, TypeDimmer, TypeColorTemp:
		return 1
	case TypeRGB:
		return 4 // master brightness + R, G, B
	case TypeRGBW:
		return 5 // master brightness + R, G, B, W
	case TypeRGBWW:
		return 6 // master brightness + R, G, B, cold white, warm white
	case TypeUnknown:
		return 0
	}
	return 0
}

// Mapping assigns a contiguous DMX channel span to one entity.
type Mapping struct {
	// DeviceID is the Home Assistant entity id (e.g. "light.kitchen").
	DeviceID string `json:"device_id"`

	// Name is the friendly name captured at discovery time.
	Name string `json:"name"`

	// Type determines decode rules and channel consumption.
	Type DeviceType `json:"type"`

	// Channel is the primary DMX channel, 1-based.
	Channel int `json:"channel"`

	// AuxChannels are the additional channels consumed by multi-channel
	// types, in component order.
	AuxChannels []int `json:"aux_channels,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Channels returns the full span: primary followed by aux channels.
func (m Mapping) Channels() []int {
	out := make([]int, 0, 1+len(m.AuxChannels))
	out = append(out, m.Channel)
	out = append(out, m.AuxChannels...)
	return out
}

// auxSpan computes the aux channels for a type anchored at primary.
func auxSpan(primary int, t DeviceType) []int {
	n := t.ChannelSpan() - 1
	if n <= 0 {
		return nil
	}
	aux := make([]int, n)
	for i := range aux {
		aux[i] = primary + 1 + i
	}
	return aux
}

// Entity is the slice of Home Assistant entity state the mapper needs
// for classification.
type Entity struct {
	ID         string
	Name       string
	Attributes map[string]any
}

// Classify determines the device type for an entity from its domain and
// capability attributes.
//
// Lights are classified by supported_color_modes, preferring the richest
// capability: rgbw/rgbww beat rgb/hs, which beat colour temperature,
// which beats plain brightness. A light with none of these is driven as
// a switch. Entities outside the switch and light domains are unknown.
func Classify(e Entity) DeviceType {
	domain, _, found := strings.Cut(e.ID, ".")
	if !found {
		return TypeUnknown
	}

	switch domain {
	case "switch":
		return TypeSwitch
	case "light":
		modes := colorModes(e.Attributes)
		switch {
		case modes["rgbww"], modes["rgbw"]:
			return TypeRGBW
		case modes["rgb"], modes["hs"]:
			return TypeRGB
		case modes["color_temp"]:
			return TypeColorTemp
		case modes["brightness"]:
			return TypeDimmer
		default:
			if _, ok := e.Attributes["brightness"]; ok {
				return TypeDimmer
			}
			return TypeSwitch
		}
	default:
		return TypeUnknown
	}
}

// colorModes extracts supported_color_modes as a set of strings.
func colorModes(attrs map[string]any) map[string]bool {
	out := make(map[string]bool)
	raw, ok := attrs["supported_color_modes"]
	if !ok {
		return out
	}
	list, ok := raw.([]any)
	if !ok {
		return out
	}
	for _, v := range list {
		if s, ok := v.(string); ok {
			out[s] = true
		}
	}
	return out
}
