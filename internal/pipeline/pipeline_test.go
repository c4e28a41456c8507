package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixpig/xenomorph/internal/config"
	"github.com/nixpig/xenomorph/internal/rootfs/builder"
)

func TestPrintPlanListsNineSteps(t *testing.T) {
	require.Len(t, Steps, 9)

	buf := &bytes.Buffer{}
	cfg := config.Defaults()
	cfg.Image = "alpine:latest"
	PrintPlan(buf, cfg)

	out := buf.String()
	assert.Contains(t, out, "alpine:latest")
	for _, step := range Steps {
		assert.Contains(t, out, step)
	}
}

func TestPromptAcceptsYVariants(t *testing.T) {
	cases := map[string]bool{
		"y\n":   true,
		"Y\n":   true,
		"yes\n": true,
		"n\n":   false,
		"\n":    false,
	}
	for input, want := range cases {
		assert.Equal(t, want, Prompt(strings.NewReader(input), &bytes.Buffer{}), "Prompt(%q)", input)
	}
}

func TestResolveExecTargetPrefersExplicitFlag(t *testing.T) {
	cfg := config.Defaults()
	cfg.ExecCmd = "/custom/init"
	cmd, args := resolveExecTarget(cfg, &builder.ImageConfig{Entrypoint: []string{"/other"}})
	assert.Equal(t, "/custom/init", cmd)
	assert.Empty(t, args)
}

func TestResolveExecTargetFallsBackToImageConfig(t *testing.T) {
	cfg := config.Defaults() // ExecCmd defaults to /bin/sh
	cmd, args := resolveExecTarget(cfg, &builder.ImageConfig{
		Entrypoint: []string{"/usr/bin/myapp"},
		Cmd:        []string{"--flag"},
	})
	assert.Equal(t, "/usr/bin/myapp", cmd)
	assert.Equal(t, []string{"--flag"}, args)
}

func TestResolveExecTargetDefaultsWhenNoImageConfig(t *testing.T) {
	cfg := config.Defaults()
	cmd, _ := resolveExecTarget(cfg, nil)
	assert.Equal(t, "/bin/sh", cmd)
}
