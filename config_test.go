package flcoord_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/flcoord"
	"github.com/absmach/flcoord/pkg/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig(t *testing.T) {
	cases := []struct {
		desc     string
		content  string
		size     int
		fraction float64
		err      bool
	}{
		{
			desc: "full config",
			content: `
[coordinator]
client_id = "c1"
client_key = "k1"
domain_id = "d1"
channel_id = "ch1"

[model]
name = "tiny"

[[model.parameters]]
name = "w"
shape = [2, 3]

[[model.parameters]]
name = "b"
shape = [3]

[selection]
fraction = 0.25
`,
			size:     9,
			fraction: 0.25,
		},
		{
			desc:     "empty config uses defaults",
			content:  "",
			size:     321,
			fraction: selector.DefaultFraction,
		},
		{
			desc: "fraction out of range",
			content: `
[selection]
fraction = 1.5
`,
			err: true,
		},
		{
			desc: "parameter without name",
			content: `
[[model.parameters]]
shape = [2]
`,
			err: true,
		},
		{
			desc: "zero dimension",
			content: `
[[model.parameters]]
name = "w"
shape = [0]
`,
			err: true,
		},
		{
			desc:    "malformed toml",
			content: "[model",
			err:     true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg, err := flcoord.LoadConfig(writeConfig(t, tc.content))
			if tc.err {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.size, cfg.ModelShape().Size())
			assert.InDelta(t, tc.fraction, cfg.Fraction(), 0)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := flcoord.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := flcoord.DefaultConfig()
	assert.Equal(t, 321, cfg.ModelShape().Size())
	assert.InDelta(t, selector.DefaultFraction, cfg.Fraction(), 0)
}
