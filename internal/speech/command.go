package speech

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Command speaks through an espeak-compatible binary on the host.
type Command struct {
	binary string

	mu      sync.Mutex
	current *exec.Cmd
}

// NewCommand returns a synthesizer for binary, or Unsupported when the
// binary is not on PATH.
func NewCommand(binary string) Synthesizer {
	path, err := exec.LookPath(binary)
	if err != nil {
		return Unsupported{}
	}
	return &Command{binary: path}
}

func (c *Command) Supported() bool { return true }

func (c *Command) Speak(ctx context.Context, u Utterance) error {
	cmd := exec.CommandContext(ctx, c.binary, Args(u)...)

	c.mu.Lock()
	if c.current != nil && c.current.Process != nil {
		_ = c.current.Process.Kill()
	}
	c.current = cmd
	if err := cmd.Start(); err != nil {
		c.current = nil
		c.mu.Unlock()
		return fmt.Errorf("starting %s: %w", c.binary, err)
	}
	c.mu.Unlock()

	err := cmd.Wait()

	c.mu.Lock()
	if c.current == cmd {
		c.current = nil
	}
	c.mu.Unlock()
	return err
}

// Args maps an utterance onto espeak flags: words per minute, pitch 0-99
// and amplitude 0-200, scaled from the defaults of 175, 50 and 100.
func Args(u Utterance) []string {
	speed := int(math.Round(175 * u.Rate))
	pitch := clamp(int(math.Round(50*u.Pitch)), 0, 99)
	amplitude := clamp(int(math.Round(100*u.Volume)), 0, 200)
	return []string{
		"-v", strings.ToLower(u.Lang),
		"-s", strconv.Itoa(speed),
		"-p", strconv.Itoa(pitch),
		"-a", strconv.Itoa(amplitude),
		"--", u.Text,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
