package marker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drfeedback/analyzers"
)

const eapolMessage = "There is no indication of a successful WPA wireless association"

func wpalog(t *testing.T) *Analyzer {
	t.Helper()
	a, err := New(Options{Checks: []Check{{
		Marker:  "EAPOL authentication completed successfully",
		Message: eapolMessage,
		Mode:    Require,
	}}})
	require.NoError(t, err)
	return a
}

func TestRequire(t *testing.T) {
	a := wpalog(t)

	present := []byte("wlan0: Trying to associate\nwlan0: WPA: Key negotiation completed\nEAPOL authentication completed successfully\n")
	got, err := a.Inspect(context.Background(), present)
	require.NoError(t, err)
	assert.Equal(t, 0, analyzers.Count(got, analyzers.SeverityWarn))

	absent := []byte("wlan0: Trying to associate\nwlan0: CTRL-EVENT-DISCONNECTED\n")
	got, err = a.Inspect(context.Background(), absent)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, analyzers.Warn(eapolMessage), got[0])
}

func TestForbid(t *testing.T) {
	a, err := New(Options{Checks: []Check{
		{Marker: "rdate FAIL", Message: "Rdate has failed at least once", Mode: Forbid},
		{Marker: "make-minecraft error", Message: "Make Minecraft has reported problems", Mode: Forbid},
	}})
	require.NoError(t, err)

	got, err := a.Inspect(context.Background(), []byte("12:00 rdate FAIL\n12:01 all good\n"))
	require.NoError(t, err)
	assert.Equal(t, []analyzers.Finding{analyzers.Warn("Rdate has failed at least once")}, got)

	got, err = a.Inspect(context.Background(), []byte("nothing to see\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarkerDoesNotSpanLines(t *testing.T) {
	a, err := New(Options{Checks: []Check{{Marker: "wlan0: associated", Message: "not associated"}}})
	require.NoError(t, err)

	got, err := a.Inspect(context.Background(), []byte("wlan0:\nassociated\n"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEmptyMessage(t *testing.T) {
	a, err := New(Options{
		EmptyMessage: "Looks like there is no wireless credentials cache",
		Checks:       []Check{{Marker: `encryption": "wpa"`, Message: "There is a non-WPA connection in the cache"}},
	})
	require.NoError(t, err)

	got, err := a.Inspect(context.Background(), []byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, []analyzers.Finding{analyzers.Warn("Looks like there is no wireless credentials cache")}, got)

	got, err = a.Inspect(context.Background(), []byte(`{"essid": "home", "encryption": "wpa"}`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Checks: []Check{{Marker: "", Message: "m"}}})
	assert.Error(t, err)

	_, err = New(Options{Checks: []Check{{Marker: "x"}}})
	assert.Error(t, err)
}
