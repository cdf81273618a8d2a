package console

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestOutput(t *testing.T) {
	color.NoColor = true
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	Infof("wrote %d bytes", 2)
	Printf("%#x\n", 0x50)
	Errorf("no ack from %s", "0x50")
	Warnf("retry %d", 1)
	assert.Equal(t, "... wrote 2 bytes\n0x50\n", out.String())
	assert.Equal(t, "ERROR: no ack from 0x50\nWARN: retry 1\n", errOut.String())
}

func TestExit(t *testing.T) {
	err := Exit(2, "bad %s", "address")
	assert.Equal(t, 2, err.ExitCode())
	assert.EqualError(t, err, "bad address")
}
