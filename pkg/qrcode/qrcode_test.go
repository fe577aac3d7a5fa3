package qrcode

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
)

func checkInPayload(t *testing.T) *payload.Payload {
	t.Helper()
	key, err := keys.FromHex("85f1e204ba63fe41a0f0da37743e8d1c6af533fc")
	require.NoError(t, err)
	at := time.Date(2025, 7, 17, 15, 14, 0, 0, time.UTC)
	p, err := payload.CheckIn(2305947582, at, payload.Signer{Role: keys.RoleAccess, Key: key})
	require.NoError(t, err)
	return p
}

func isBlack(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0 && g == 0 && b == 0
}

func TestImageGeometry(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		scale  int
		border int
	}{
		{"defaults", Options{}, DefaultScale, DefaultBorder},
		{"custom", Options{Scale: 3, Border: 2}, 3, 2},
		{"no border", Options{Scale: 4, Border: -1}, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := New(checkInPayload(t), tt.opts)
			require.NoError(t, err)

			n := code.Modules()
			require.Greater(t, n, 20)

			img := code.Image()
			side := (n + 2*tt.border) * tt.scale
			assert.Equal(t, side, img.Bounds().Dx())
			assert.Equal(t, side, img.Bounds().Dy())

			// The top-left finder pattern starts right after the border.
			origin := tt.border * tt.scale
			assert.True(t, isBlack(img.At(origin, origin)))
			if tt.border > 0 {
				assert.False(t, isBlack(img.At(0, 0)))
			}
		})
	}
}

func TestPNGRoundTrip(t *testing.T) {
	code, err := New(checkInPayload(t), Options{Scale: 2})
	require.NoError(t, err)

	data, err := code.PNG()
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, code.Image().Bounds(), img.Bounds())
}

func TestSave(t *testing.T) {
	code, err := New(checkInPayload(t), Options{Scale: 1})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "check_in.png")
	require.NoError(t, code.Save(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	assert.NoError(t, err)
}

func TestVersionAndTerminal(t *testing.T) {
	code, err := New(checkInPayload(t), Options{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, code.Version(), 1)
	assert.NotEmpty(t, code.Terminal(false))
}

func TestString(t *testing.T) {
	code, err := New(checkInPayload(t), Options{})
	require.NoError(t, err)

	s := code.String()
	assert.Contains(t, s, "QR Code Info")
	assert.Contains(t, s, "action: CHECK_IN")
	assert.Contains(t, s, "payload: 01 89 71 f7 be 00 00 00 00 68 79 13 38 84 ea")
}

func TestDebugPayload(t *testing.T) {
	p, err := payload.BlinkNTimes(4)
	require.NoError(t, err)

	code, err := New(p, Options{})
	require.NoError(t, err)
	assert.Same(t, p, code.Payload())
	assert.Contains(t, code.String(), "action: DEBUG_BLINK")
}

func TestRenderAndSave(t *testing.T) {
	p := checkInPayload(t)

	img, err := Render(p, Options{Scale: 1, Border: -1})
	require.NoError(t, err)
	code, err := New(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, code.Modules(), img.Bounds().Dx())

	path := filepath.Join(t.TempDir(), "p.png")
	require.NoError(t, Save(p, path, Options{Scale: 1}))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestHexDump(t *testing.T) {
	p, err := payload.BlinkNTimes(4)
	require.NoError(t, err)
	assert.Equal(t, "QR Code Info\naction: DEBUG_BLINK\npayload: 38 00 00 00 04", HexDump(p))
}
