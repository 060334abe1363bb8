package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Interval int    `mapstructure:"interval"`
	Level    string `mapstructure:"log-level"`
	Name     string `mapstructure:"name"`
}

func newFlags(args ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("t", pflag.ContinueOnError)
	fs.Int("interval", 1000, "")
	fs.String("log-level", "info", "")
	_ = fs.Parse(args)
	return fs
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	var s sample
	v, err := Load("cbtest", newFlags(), "", &s)
	require.NoError(t, err)
	assert.Equal(t, 1000, s.Interval)
	assert.Equal(t, "info", s.Level)
	assert.Empty(t, v.ConfigFileUsed())
	assert.False(t, Watch(v, func(sample, error) {}))
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cbtest.yaml")
	require.NoError(t, os.WriteFile(file, []byte("interval: 250\nlog-level: debug\nname: from-file\n"), 0644))

	// 文件覆盖默认值
	var s sample
	_, err := Load("cbtest", newFlags(), file, &s)
	require.NoError(t, err)
	assert.Equal(t, 250, s.Interval)
	assert.Equal(t, "debug", s.Level)
	assert.Equal(t, "from-file", s.Name)

	// 环境变量覆盖文件
	t.Setenv("CBTEST_LOG_LEVEL", "warn")
	s = sample{}
	_, err = Load("cbtest", newFlags(), file, &s)
	require.NoError(t, err)
	assert.Equal(t, "warn", s.Level)

	// 显式 flag 覆盖一切
	s = sample{}
	_, err = Load("cbtest", newFlags("--interval=5", "--log-level=error"), file, &s)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Interval)
	assert.Equal(t, "error", s.Level)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	var s sample
	_, err := Load("cbtest", newFlags(), filepath.Join(t.TempDir(), "nope.yaml"), &s)
	assert.Error(t, err)
}

func TestWatch_Reload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cbtest.yaml")
	require.NoError(t, os.WriteFile(file, []byte("interval: 100\n"), 0644))

	var s sample
	v, err := Load("cbtest", newFlags(), file, &s)
	require.NoError(t, err)

	got := make(chan sample, 8)
	require.True(t, Watch(v, func(next sample, err error) {
		if err == nil {
			got <- next
		}
	}))

	require.NoError(t, os.WriteFile(file, []byte("interval: 300\n"), 0644))

	// 写文件可能触发多次事件，等到看见新值为止
	deadline := time.After(5 * time.Second)
	for {
		select {
		case next := <-got:
			if next.Interval == 300 {
				return
			}
		case <-deadline:
			t.Fatal("config reload not observed")
		}
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CBDOTENV_NAME=from-dotenv\nCBDOTENV_INTERVAL=42\n"), 0644))
	t.Cleanup(func() {
		_ = os.Unsetenv("CBDOTENV_NAME")
		_ = os.Unsetenv("CBDOTENV_INTERVAL")
	})
	// 已有的环境变量优先于 .env
	t.Setenv("CBDOTENV_INTERVAL", "7")

	fs := newFlags()
	fs.String("name", "", "")
	var s sample
	_, err := Load("cbdotenv", fs, "", &s)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", s.Name)
	assert.Equal(t, 7, s.Interval)
}
