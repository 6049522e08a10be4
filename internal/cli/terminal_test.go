package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingTerminal struct {
	fds []int
}

func (r *recordingTerminal) IsTerminal(fd int) bool {
	r.fds = append(r.fds, fd)
	return true
}

func TestIsInteractiveTerminal(t *testing.T) {
	detector := &recordingTerminal{}
	cli := &CLI{terminalDetector: detector}

	assert.False(t, cli.isInteractiveTerminal(&bytes.Buffer{}), "buffers are never terminals")
	assert.Empty(t, detector.fds)

	assert.True(t, cli.isInteractiveTerminal(&ttyBuffer{}))
	assert.Equal(t, []int{1}, detector.fds)
}

func TestDefaultTerminalDetectorOnRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	cli := &CLI{}
	assert.False(t, cli.isInteractiveTerminal(f))
	assert.IsType(t, &DefaultTerminalDetector{}, cli.terminalDetector)
}
