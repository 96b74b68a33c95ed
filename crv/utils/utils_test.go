package utils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	const key = "CRV_UTILS_FROM_ENV"
	defer os.Unsetenv(key)

	assert.Equal(t, "fallback", FromEnv(key, "fallback"))

	require.NoError(t, os.Setenv(key, "set"))
	assert.Equal(t, "set", FromEnv(key, "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	const key = "CRV_UTILS_ENV_INT"
	defer os.Unsetenv(key)

	assert.Equal(t, 42, GetEnvInt(key, 42))

	require.NoError(t, os.Setenv(key, "17"))
	assert.Equal(t, 17, GetEnvInt(key, 42))

	require.NoError(t, os.Setenv(key, "not-a-number"))
	assert.Equal(t, 42, GetEnvInt(key, 42))
}

func TestContainsString(t *testing.T) {
	sa := []string{"TC", "26", "59"}
	assert.True(t, ContainsString(sa, "26"))
	assert.False(t, ContainsString(sa, "50"))
	assert.False(t, ContainsString(nil, "TC"))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"73221", "73222"}, Dedupe([]string{"73221", "73222", "73221"}))
	assert.Empty(t, Dedupe(nil))
}

func TestGetDirPathNotFound(t *testing.T) {
	_, err := GetDirPath("this-dir-does-not-exist-anywhere")
	assert.Error(t, err)
}
