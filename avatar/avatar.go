// Package avatar shells out to an external image generation command to
// produce an avatar picture for an agent. Generation is best effort: a
// missing or failing generator never blocks agent creation.
package avatar

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/aicraft/logging"
)

// Options holds configuration overrides passed to NewGenerator.
type Options struct {
	// Timeout bounds one generator invocation.
	Timeout time.Duration
	// Logger receives generation diagnostics.
	Logger logging.Logger
}

// Generator wraps an external command line image generator. The command is
// invoked as `<bin> --prompt <prompt> --out <path>` and must write a PNG to
// the given path.
type Generator struct {
	bin     string
	dir     string
	timeout time.Duration
	logger  logging.Logger
}

// NewGenerator constructs a Generator writing images below dir. An empty bin
// disables generation; Generate then reports ok=false without error.
func NewGenerator(bin, dir string, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Timeout: 60 * time.Second,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{
		bin:     bin,
		dir:     dir,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// Enabled reports whether a generator command is configured.
func (g *Generator) Enabled() bool { return g.bin != "" }

// Generate renders an avatar for the agent and returns the image path.
// ok is false when generation is disabled or failed; err carries the cause
// for logging, callers treat it as non-fatal.
func (g *Generator) Generate(ctx context.Context, agentID, persona string) (path string, ok bool, err error) {
	if !g.Enabled() {
		return "", false, nil
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", false, fmt.Errorf("avatar dir: %w", err)
	}

	path = filepath.Join(g.dir, agentID+".png")
	prompt := buildPrompt(persona)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.bin, "--prompt", prompt, "--out", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		g.logger.Warn("avatar.generate.failed",
			"agent_id", agentID,
			"error", err.Error(),
			"stderr", strings.TrimSpace(stderr.String()))
		return "", false, fmt.Errorf("avatar generator: %w", err)
	}

	g.logger.Debug("avatar.generate.ok", "agent_id", agentID, "path", path, "took", time.Since(start).String())
	return path, true, nil
}

// buildPrompt turns a persona into a short portrait prompt. Long personas are
// truncated; the generator only needs a visual gist.
func buildPrompt(persona string) string {
	const maxLen = 200
	p := strings.TrimSpace(persona)
	if p == "" {
		p = "a friendly game character"
	}
	if len(p) > maxLen {
		p = p[:maxLen]
	}
	return "pixel art portrait of " + p
}
