package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Main: MainSettings{Name: "test"},
		Scanner: ScannerSettings{
			Camera:       CameraSettings{Facing: "back"},
			RearmDelay:   5 * time.Second,
			RearmOnError: 3 * time.Second,
		},
		Lookup: LookupSettings{
			BaseURL: "https://world.openfoodfacts.org",
			Timeout: 30 * time.Second,
		},
		Display: DisplaySettings{
			Mode:          "screen",
			ViewportW:     1280,
			ViewportH:     720,
			Panel:         PanelSettings{Width: 300, Height: 390},
			Margin:        10,
			Jitter:        50,
			VerticalRatio: 0.4,
			ARDistance:    2.0,
		},
		Orientation: OrientationSettings{Sensitivity: 2.5, NoiseThreshold: 0.5},
		Compare:     CompareSettings{Scale: 0.85, RowHeight: 420, TopOffset: 100},
	}
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"bad display mode", func(s *Settings) { s.Display.Mode = "hologram" }},
		{"bad camera facing", func(s *Settings) { s.Scanner.Camera.Facing = "sideways" }},
		{"zero panel width", func(s *Settings) { s.Display.Panel.Width = 0 }},
		{"negative margin", func(s *Settings) { s.Display.Margin = -1 }},
		{"vertical ratio out of range", func(s *Settings) { s.Display.VerticalRatio = 1.5 }},
		{"empty base url", func(s *Settings) { s.Lookup.BaseURL = "" }},
		{"compare scale above one", func(s *Settings) { s.Compare.Scale = 1.2 }},
		{"negative rearm delay", func(s *Settings) { s.Scanner.RearmDelay = -time.Second }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			assert.Error(t, ValidateSettings(s))
		})
	}
}
