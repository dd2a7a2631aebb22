package mapping

import "testing"

func TestDeviceType_ChannelSpan(t *testing.T) {
	tests := []struct {
		dtype DeviceType
		want  int
	}{
		{TypeSwitch, 1},
		{TypeDimmer, 1},
		{TypeColorTemp, 1},
		{TypeRGB, 4},
		{TypeRGBW, 5},
		{TypeRGBWW, 6},
		{TypeUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.dtype), func(t *testing.T) {
			if got := tt.dtype.ChannelSpan(); got != tt.want {
				t.Errorf("ChannelSpan() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDeviceType_Valid(t *testing.T) {
	if !TypeRGBWW.Valid() {
		t.Error("TypeRGBWW should be valid")
	}
	if DeviceType("strobe").Valid() {
		t.Error("unknown string should not be valid")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
		want   DeviceType
	}{
		{
			name:   "switch domain",
			entity: Entity{ID: "switch.fountain"},
			want:   TypeSwitch,
		},
		{
			name: "rgbw light",
			entity: Entity{
				ID:         "light.strip",
				Attributes: map[string]any{"supported_color_modes": []any{"rgbw"}},
			},
			want: TypeRGBW,
		},
		{
			name: "rgbww light prefers rgbw decoding",
			entity: Entity{
				ID:         "light.strip2",
				Attributes: map[string]any{"supported_color_modes": []any{"rgbww"}},
			},
			want: TypeRGBW,
		},
		{
			name: "rgb light",
			entity: Entity{
				ID:         "light.bulb",
				Attributes: map[string]any{"supported_color_modes": []any{"rgb"}},
			},
			want: TypeRGB,
		},
		{
			name: "hs light decoded as rgb",
			entity: Entity{
				ID:         "light.lamp",
				Attributes: map[string]any{"supported_color_modes": []any{"hs"}},
			},
			want: TypeRGB,
		},
		{
			name: "rgbw beats rgb when both present",
			entity: Entity{
				ID:         "light.multi",
				Attributes: map[string]any{"supported_color_modes": []any{"rgb", "rgbw"}},
			},
			want: TypeRGBW,
		},
		{
			name: "colour temperature light",
			entity: Entity{
				ID:         "light.office",
				Attributes: map[string]any{"supported_color_modes": []any{"color_temp"}},
			},
			want: TypeColorTemp,
		},
		{
			name: "brightness-only light",
			entity: Entity{
				ID:         "light.hall",
				Attributes: map[string]any{"supported_color_modes": []any{"brightness"}},
			},
			want: TypeDimmer,
		},
		{
			name: "light with brightness attribute only",
			entity: Entity{
				ID:         "light.old",
				Attributes: map[string]any{"brightness": float64(200)},
			},
			want: TypeDimmer,
		},
		{
			name:   "bare light",
			entity: Entity{ID: "light.plain"},
			want:   TypeSwitch,
		},
		{
			name:   "other domain",
			entity: Entity{ID: "sensor.temperature"},
			want:   TypeUnknown,
		},
		{
			name:   "malformed entity id",
			entity: Entity{ID: "no-domain"},
			want:   TypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.entity); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMapping_Channels(t *testing.T) {
	m := Mapping{Channel: 10, AuxChannels: []int{11, 12, 13}}
	got := m.Channels()
	want := []int{10, 11, 12, 13}
	if len(got) != len(want) {
		t.Fatalf("Channels() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Channels()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
