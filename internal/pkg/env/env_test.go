package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	Env = map[string]string{"SCOREENGINE_TEST_KEY": "from-file"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("SCOREENGINE_TEST_KEY", "from-os")

	assert.Equal(t, "from-file", GetEnv("SCOREENGINE_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("SCOREENGINE_MISSING_KEY", "def"))
}

func TestSetupEnvFileMissingIsTolerated(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(filepath.Join(dir)))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Equal(t, "", SetupEnvFile())
}

func TestSetupEnvFileExportsValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SCOREENGINE_DOTENV_VALUE=hello\nAPP_ENV=dev\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("SCOREENGINE_DOTENV_VALUE")
		Env = nil
	})

	assert.Equal(t, ".env", SetupEnvFile())
	assert.Equal(t, "hello", os.Getenv("SCOREENGINE_DOTENV_VALUE"))
	assert.Equal(t, "dev", GetEnv("APP_ENV", "prod"))
}
