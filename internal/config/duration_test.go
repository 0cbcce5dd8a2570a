package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshalYAML(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"d: 250ms", 250 * time.Millisecond},
		{"d: 6h", 6 * time.Hour},
		{"d: 2", 2 * time.Second},
		{"d: 1.5", 1500 * time.Millisecond},
		{`d: "3"`, 3 * time.Second},
		{"d: ~", 0},
		{`d: ""`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			var out struct {
				D Duration `yaml:"d"`
			}
			require.NoError(t, yaml.Unmarshal([]byte(tc.in), &out))
			assert.Equal(t, tc.want, out.D.Duration)
		})
	}
}

func TestDurationUnmarshalYAMLErrors(t *testing.T) {
	for _, in := range []string{"d: soon", "d: -1s", "d: -2", "d: [1s]"} {
		var out struct {
			D Duration `yaml:"d"`
		}
		assert.Error(t, yaml.Unmarshal([]byte(in), &out), in)
	}
}

func TestDurationMarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(struct {
		D Duration `yaml:"d"`
	}{D: DurationFrom(90 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, "d: 1m30s\n", string(out))
}
