package orientation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/nutrition"
	"github.com/nutriscan/arnutri-go/internal/panel"
)

func testSetup(t *testing.T) (*Tracker, *panel.Registry, *panel.ScreenHost) {
	t.Helper()

	display := &conf.DisplaySettings{
		ViewportW:     1280,
		ViewportH:     720,
		Panel:         conf.PanelSettings{Width: 300, Height: 390},
		Margin:        10,
		Jitter:        50,
		VerticalRatio: 0.4,
	}
	registry := panel.NewRegistry(nil)
	host := panel.NewScreenHost(display, 1)
	tracker := NewTracker(&conf.OrientationSettings{Sensitivity: 2.5, NoiseThreshold: 0.5}, registry, host, nil)
	return tracker, registry, host
}

func addPanel(registry *panel.Registry, left, top float64) *panel.Panel {
	return registry.Add(
		&nutrition.Record{SourceID: "x", Title: "x"},
		panel.Position{Screen: &panel.ScreenPosition{Left: left, Top: top}},
	)
}

func TestTrackerStateTransitions(t *testing.T) {
	t.Parallel()

	tracker, _, _ := testSetup(t)
	assert.Equal(t, StateUninitialized, tracker.State())

	require.NoError(t, tracker.RequirePermission())
	assert.Equal(t, StateAwaitingPermission, tracker.State())

	require.NoError(t, tracker.GrantPermission())
	assert.Equal(t, StateActive, tracker.State())

	// Invalid transitions are rejected.
	assert.Error(t, tracker.RequirePermission())
	assert.Error(t, tracker.Activate())
}

func TestTrackerDirectActivation(t *testing.T) {
	t.Parallel()

	tracker, _, _ := testSetup(t)
	require.NoError(t, tracker.Activate())
	assert.Equal(t, StateActive, tracker.State())
}

func TestTrackerDenyDisables(t *testing.T) {
	t.Parallel()

	tracker, registry, _ := testSetup(t)
	p := addPanel(registry, 100, 200)

	require.NoError(t, tracker.RequirePermission())
	require.NoError(t, tracker.DenyPermission())
	assert.Equal(t, StateDisabled, tracker.State())

	assert.False(t, tracker.HandleSample(Sample{Beta: 10, Gamma: 10}))
	assert.False(t, tracker.HandleSample(Sample{Beta: 50, Gamma: 50}))

	got, _ := registry.Get(p.ID)
	assert.Equal(t, 100.0, got.Position.Screen.Left)
}

func TestTrackerFirstSampleOnlySeeds(t *testing.T) {
	t.Parallel()

	tracker, registry, _ := testSetup(t)
	p := addPanel(registry, 100, 200)
	require.NoError(t, tracker.Activate())

	assert.False(t, tracker.HandleSample(Sample{Alpha: 180, Beta: 45, Gamma: 30}))

	got, _ := registry.Get(p.ID)
	assert.Equal(t, 100.0, got.Position.Screen.Left)
	assert.Equal(t, 200.0, got.Position.Screen.Top)
}

func TestTrackerAppliesDeltas(t *testing.T) {
	t.Parallel()

	tracker, registry, _ := testSetup(t)
	p := addPanel(registry, 100, 200)
	require.NoError(t, tracker.Activate())

	tracker.HandleSample(Sample{Beta: 0, Gamma: 0})
	moved := tracker.HandleSample(Sample{Beta: 4, Gamma: 2})
	assert.True(t, moved)

	got, _ := registry.Get(p.ID)
	// left - dGamma*2.5 and top + dBeta*2.5/2
	assert.InDelta(t, 100.0-2*2.5, got.Position.Screen.Left, 1e-9)
	assert.InDelta(t, 200.0+4*2.5/2, got.Position.Screen.Top, 1e-9)

	// The drifted position is persisted as the new home.
	require.NotNil(t, got.Home)
	assert.InDelta(t, got.Position.Screen.Left, got.Home.Screen.Left, 1e-9)
}

func TestTrackerAlphaUnused(t *testing.T) {
	t.Parallel()

	tracker, registry, _ := testSetup(t)
	p := addPanel(registry, 100, 200)
	require.NoError(t, tracker.Activate())

	tracker.HandleSample(Sample{})
	// A large compass swing alone exceeds the noise gate but moves
	// nothing.
	moved := tracker.HandleSample(Sample{Alpha: 90})
	assert.False(t, moved)

	got, _ := registry.Get(p.ID)
	assert.Equal(t, 100.0, got.Position.Screen.Left)
	assert.Equal(t, 200.0, got.Position.Screen.Top)
}

func TestTrackerJitterSuppression(t *testing.T) {
	t.Parallel()

	tracker, registry, _ := testSetup(t)
	p := addPanel(registry, 100, 200)
	require.NoError(t, tracker.Activate())

	tracker.HandleSample(Sample{Beta: 10, Gamma: 10, Alpha: 10})
	assert.False(t, tracker.HandleSample(Sample{Beta: 10.4, Gamma: 9.7, Alpha: 10.2}))

	got, _ := registry.Get(p.ID)
	assert.Equal(t, 100.0, got.Position.Screen.Left)
	assert.Equal(t, 200.0, got.Position.Screen.Top)
}

func TestTrackerClampsToViewport(t *testing.T) {
	t.Parallel()

	tracker, registry, _ := testSetup(t)
	p := addPanel(registry, 15, 15)
	require.NoError(t, tracker.Activate())

	tracker.HandleSample(Sample{})
	// A huge rightward tilt pushes left far negative before clamping.
	tracker.HandleSample(Sample{Gamma: 500})

	got, _ := registry.Get(p.ID)
	assert.Equal(t, 10.0, got.Position.Screen.Left)
}

func TestTrackerInertDuringComparison(t *testing.T) {
	t.Parallel()

	tracker, registry, _ := testSetup(t)
	p := addPanel(registry, 100, 200)
	require.NoError(t, tracker.Activate())
	registry.SetComparisonActive(true)

	tracker.HandleSample(Sample{})
	assert.False(t, tracker.HandleSample(Sample{Beta: 20, Gamma: 20}))

	got, _ := registry.Get(p.ID)
	assert.Equal(t, 100.0, got.Position.Screen.Left)
}

func TestTrackerSamplesRaceComparisonToggle(t *testing.T) {
	t.Parallel()

	tracker, registry, _ := testSetup(t)
	addPanel(registry, 600, 300)
	addPanel(registry, 700, 400)
	require.NoError(t, tracker.Activate())
	tracker.HandleSample(Sample{})

	// Samples and comparison transitions from different goroutines must
	// serialize through the registry lock.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			registry.SetComparisonActive(i%2 == 0)
		}
	}()
	for i := 0; i < 500; i++ {
		tracker.HandleSample(Sample{Beta: float64(i % 7), Gamma: float64(i % 5)})
	}
	<-done
	registry.SetComparisonActive(true)
	assert.False(t, tracker.HandleSample(Sample{Beta: 30, Gamma: 30}))
}

func TestTrackerInertWithoutScreenHost(t *testing.T) {
	t.Parallel()

	registry := panel.NewRegistry(nil)
	tracker := NewTracker(&conf.OrientationSettings{Sensitivity: 2.5, NoiseThreshold: 0.5}, registry, nil, nil)
	require.NoError(t, tracker.Activate())

	tracker.HandleSample(Sample{})
	assert.False(t, tracker.HandleSample(Sample{Beta: 20, Gamma: 20}))
}
