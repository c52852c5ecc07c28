package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(content), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	assert := assert.New(t)

	config, err := Load()
	assert.NoError(err)
	assert.Equal(Config{
		Voices:   4,
		BudgetMs: 4,
		History:  10,
		Display:  Display{Width: 64, Scale: 8, Enabled: true},
		Log:      Log{Level: "info"},
	}, config)
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)

	first := writeConfig(t, "first.cue", `
voices: 2
display: width: 32
`)
	second := writeConfig(t, "second.cue", `
verbose: true
log: {
	level:   "debug"
	journal: true
}
`)

	config, err := Load(first, second)
	assert.NoError(err)
	assert.True(config.Verbose)
	assert.Equal(2, config.Voices)
	assert.Equal(Display{Width: 32, Scale: 8, Enabled: true}, config.Display)
	assert.Equal(Log{Level: "debug", Journal: true}, config.Log)
}

func TestLoad_Invalid(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		content string
	}){
		{"range", "voices: 99"},
		{"narrow", "display: width: 4"},
		{"level", `log: level: "loud"`},
		{"unknown", "speed: 3"},
		{"unknown_nested", "display: colour: 1"},
		{"syntax", "voices: {"},
	}

	for _, entry := range table {
		path := writeConfig(t, entry.name+".cue", entry.content)
		_, err := Load(path)
		assert.ErrorIs(err, ErrConfig, entry.name)
	}
}

func TestLoad_Conflict(t *testing.T) {
	assert := assert.New(t)

	first := writeConfig(t, "first.cue", "voices: 2")
	second := writeConfig(t, "second.cue", "voices: 3")

	_, err := Load(first, second)
	assert.ErrorIs(err, ErrConfig)
}

func TestLoad_Missing(t *testing.T) {
	assert := assert.New(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	assert.ErrorIs(err, ErrConfig)
	assert.ErrorIs(err, os.ErrNotExist)
}

func TestConfig_Options(t *testing.T) {
	assert := assert.New(t)

	config := Config{
		Verbose:  true,
		Voices:   3,
		BudgetMs: 8,
		History:  5,
		Seed:     42,
		Display:  Display{Width: 16, Scale: 2, Enabled: true},
	}

	opts := config.Options()
	assert.True(opts.Verbose)
	assert.Equal(3, opts.Voices)
	assert.Equal(16, opts.DisplayWidth)
	assert.Equal(8*time.Millisecond, opts.Budget)
	assert.Equal(5, opts.HistoryLength)
	assert.Equal(uint64(42), opts.Seed)
}
