/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package compress

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZlibCompressor_RoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	z := NewZlibCompressor(buf, buf, DefaultCompression)

	payload := `<message to="room@muc.aether.im" type="groupchat"><body>compressed banter</body></message>`
	n, err := z.Write([]byte(payload))
	require.Nil(t, err)
	require.Equal(t, len(payload), n)

	out := make([]byte, len(payload))
	_, err = io.ReadFull(z, out)
	require.Nil(t, err)
	require.Equal(t, payload, string(out))
}

func TestLevel_String(t *testing.T) {
	require.Equal(t, "", NoCompression.String())
	require.Equal(t, "default", DefaultCompression.String())
	require.Equal(t, "best", BestCompression.String())
	require.Equal(t, "speed", SpeedCompression.String())
}
