package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxHeadersEncoding(t *testing.T) {
	raw, err := encodeHeaders(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)

	headers := map[string]string{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01", "tracestate": "congo=t61rcWkgMzE"}
	raw, err = encodeHeaders(headers)
	require.NoError(t, err)

	decoded, err := decodeHeaders([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, headers, decoded)

	decoded, err = decodeHeaders([]byte("{}"))
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = decodeHeaders([]byte("not json"))
	assert.Error(t, err)
}
