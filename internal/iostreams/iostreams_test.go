package iostreams

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestIOStreams_Defaults(t *testing.T) {
	ios := NewTestIOStreams()
	assert.False(t, ios.IsOutputTTY())
	assert.False(t, ios.ColorEnabled())

	ios.SetInteractive(true)
	assert.True(t, ios.IsOutputTTY())

	ios.SetColorEnabled(true)
	assert.True(t, ios.ColorEnabled())
}

func TestTablePrinter_Plain(t *testing.T) {
	ios := NewTestIOStreams()
	tp := ios.NewTablePrinter("FIXTURE", "CONTAINER", "PORTS")
	tp.AddRow("redis", "c1", "6379/tcp->127.0.0.1:32768")
	tp.AddRow("postgres")
	assert.Equal(t, 2, tp.Len())

	require.NoError(t, tp.Render())
	assert.Equal(t,
		"FIXTURE   CONTAINER  PORTS\n"+
			"redis     c1         6379/tcp->127.0.0.1:32768\n"+
			"postgres             \n",
		ios.OutBuf.String())
}

func TestTablePrinter_NoHeaders(t *testing.T) {
	ios := NewTestIOStreams()
	tp := ios.NewTablePrinter()
	tp.AddRow("x")
	require.NoError(t, tp.Render())
	assert.Empty(t, ios.OutBuf.String())
}
