package mapping

import "math"

// Decode thresholds and colour temperature bounds.
const (
	// switchThreshold is the highest channel value still treated as "off"
	// for switch devices. 126 and above activates.
	switchThreshold = 125

	// minKelvin and kelvinRange map channel value 0..255 onto 2000K..6500K.
	minKelvin   = 2000
	kelvinRange = 4500
)

// Action is the direction of a device command.
type Action string

// Command actions.
const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
)

// Command is one device instruction decoded from a frame.
type Command struct {
	DeviceID string
	Action   Action

	// Brightness is set for activate commands on dimmable types.
	Brightness *uint8

	// Color carries the colour components read from aux channels.
	// Length 3 (RGB), 4 (RGBW), or 5 (RGBWW); nil for single-channel types.
	Color []uint8

	// Kelvin is set for colour-temperature activates.
	Kelvin *int
}

// ChannelSource supplies channel values to the translator.
//
// The bool result reports whether the source carries the channel at all,
// which lets sparse partial updates flow through the same decode path as
// full frames.
type ChannelSource interface {
	Value(channel int) (uint8, bool)
}

// ChannelMap is a sparse ChannelSource for partial updates.
type ChannelMap map[int]uint8

// Value implements ChannelSource.
func (m ChannelMap) Value(channel int) (uint8, bool) {
	v, ok := m[channel]
	return v, ok
}

// Translate decodes a channel source into an ordered command list.
//
// Devices are visited in table order. A device whose primary channel is
// absent from the source is skipped, which supports partial updates.
// Aux channels absent from the source read as zero. Translation is pure:
// it inspects state but never mutates the table and performs no I/O.
func (t *Table) Translate(src ChannelSource) []Command {
	t.mu.RLock()
	defer t.mu.RUnlock()

	commands := make([]Command, 0, len(t.order))

	for _, id := range t.order {
		m := t.byDevice[id]

		primary, ok := src.Value(m.Channel)
		if !ok {
			continue
		}

		if cmd, ok := decode(m, primary, src); ok {
			commands = append(commands, cmd)
		}
	}

	return commands
}

// decode applies the per-type decode rules to one device.
func decode(m Mapping, primary uint8, src ChannelSource) (Command, bool) {
	switch m.Type {
	case TypeSwitch:
		action := ActionDeactivate
		if primary > switchThreshold {
			action = ActionActivate
		}
		return Command{DeviceID: m.DeviceID, Action: action}, true

	case TypeDimmer:
		if primary == 0 {
			return Command{DeviceID: m.DeviceID, Action: ActionDeactivate}, true
		}
		b := primary
		return Command{DeviceID: m.DeviceID, Action: ActionActivate, Brightness: &b}, true

	case TypeColorTemp:
		if primary == 0 {
			return Command{DeviceID: m.DeviceID, Action: ActionDeactivate}, true
		}
		b := primary
		k := channelToKelvin(primary)
		return Command{DeviceID: m.DeviceID, Action: ActionActivate, Brightness: &b, Kelvin: &k}, true

	case TypeRGB, TypeRGBW, TypeRGBWW:
		// A colour command needs the full aux span. A mapping whose aux
		// channels do not cover it cannot assemble one; skip the device.
		if len(m.AuxChannels) != m.Type.ChannelSpan()-1 {
			return Command{}, false
		}
		if primary == 0 {
			return Command{DeviceID: m.DeviceID, Action: ActionDeactivate}, true
		}
		b := primary
		color := make([]uint8, len(m.AuxChannels))
		for i, ch := range m.AuxChannels {
			v, _ := src.Value(ch) // absent aux channels read as zero
			color[i] = v
		}
		return Command{DeviceID: m.DeviceID, Action: ActionActivate, Brightness: &b, Color: color}, true

	case TypeUnknown:
		return Command{}, false
	}

	return Command{}, false
}

// channelToKelvin maps a channel value onto the 2000K..6500K range.
func channelToKelvin(v uint8) int {
	return int(math.Round(minKelvin + float64(v)/255.0*kelvinRange))
}
