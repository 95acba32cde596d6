package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandaloneBinaryRunsOutsideRepo(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary exec test is unix-focused")
	}
	if testing.Short() {
		t.Skip("builds the binary")
	}

	goMod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err)
	repoRoot := filepath.Dir(strings.TrimSpace(string(goMod)))

	binary := filepath.Join(t.TempDir(), "shopgenie")
	build := exec.Command("go", "build", "-o", binary, "./cmd/shopgenie")
	build.Dir = repoRoot
	build.Env = os.Environ()
	out, err := build.CombinedOutput()
	require.NoError(t, err, string(out))

	outside := t.TempDir()
	env := append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir())

	for _, args := range [][]string{{"version"}, {"--help"}, {"search", "--help"}, {"serve", "--help"}} {
		cmd := exec.Command(binary, args...)
		cmd.Dir = outside
		cmd.Env = env
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "%v: %s", args, string(out))
		if args[0] == "version" {
			assert.True(t, strings.HasPrefix(string(out), "shopgenie "), string(out))
		}
	}
}
