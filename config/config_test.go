package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udpftp/udpftp/sender"
)

func TestLoadMissingPathReturnsZeroOverlay(t *testing.T) {
	o, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Overlay{}, o)

	o, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Overlay{}, o)
}

func TestLoadParsesOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "udpftp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sws: 131072\nmetrics_addr: \":9090\"\n"), 0o644))

	o, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, o.SWS)
	assert.Equal(t, 131072, *o.SWS)
	require.NotNil(t, o.MetricsAddr)
	assert.Equal(t, ":9090", *o.MetricsAddr)
	assert.Nil(t, o.MSS)
}

func TestApplyOverlaysOnlySetFields(t *testing.T) {
	defaults := Defaults()
	sws := 500
	o := Overlay{SWS: &sws}

	r := Apply(defaults, o)
	assert.Equal(t, 500, r.SWS)
	assert.Equal(t, defaults.MSS, r.MSS)
	assert.Equal(t, defaults.RTOMin, r.RTOMin)
}

func TestApplyConvertsMillisToDuration(t *testing.T) {
	ms := 250
	o := Overlay{RTOMinMillis: &ms}
	r := Apply(Defaults(), o)
	assert.Equal(t, 250*time.Millisecond, r.RTOMin)
}

func TestRTOBoundsForVariantDiffer(t *testing.T) {
	aMin, aMax := RTOBoundsForVariant(sender.VariantA)
	assert.Equal(t, 100*time.Millisecond, aMin)
	assert.Equal(t, 2*time.Second, aMax)

	bMin, bMax := RTOBoundsForVariant(sender.VariantB)
	assert.Equal(t, 200*time.Millisecond, bMin)
	assert.Equal(t, 60*time.Second, bMax)
}

func TestVariantBoundsWinOverDefaultsButLoseToOverlay(t *testing.T) {
	defaults := Defaults()
	defaults.RTOMin, defaults.RTOMax = RTOBoundsForVariant(sender.VariantA)

	r := Apply(defaults, Overlay{})
	assert.Equal(t, 100*time.Millisecond, r.RTOMin)
	assert.Equal(t, 2*time.Second, r.RTOMax)

	ms := 500
	r = Apply(defaults, Overlay{RTOMinMillis: &ms})
	assert.Equal(t, 500*time.Millisecond, r.RTOMin)
	assert.Equal(t, 2*time.Second, r.RTOMax)
}
