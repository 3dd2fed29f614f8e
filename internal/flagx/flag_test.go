package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		owned []string
		want  []string
	}{
		{
			name:  "short flag with separate value",
			args:  []string{"-c", "conf.json", "-a", "https://example.supabase.co"},
			owned: []string{"-c", "--config"},
			want:  []string{"-c", "conf.json"},
		},
		{
			name:  "long flag with equals",
			args:  []string{"--config=alt.toml", "-a", "localhost"},
			owned: []string{"-c", "--config"},
			want:  []string{"--config=alt.toml"},
		},
		{
			name:  "unknown flags ignored",
			args:  []string{"-x", "1", "--y=2", "positional"},
			owned: []string{"-c"},
			want:  []string{},
		},
		{
			name:  "flag without value at end is kept",
			args:  []string{"-c"},
			owned: []string{"-c"},
			want:  []string{"-c"},
		},
		{
			name:  "next dash token is not a value",
			args:  []string{"-c", "-t", "5"},
			owned: []string{"-c"},
			want:  []string{"-c"},
		},
		{
			name:  "several owned flags keep order",
			args:  []string{"-a", "http://localhost:54321", "-k", "anon", "-z", "q", "-t", "10"},
			owned: []string{"-a", "-k", "-t"},
			want:  []string{"-a", "http://localhost:54321", "-k", "anon", "-t", "10"},
		},
		{
			name:  "empty",
			args:  nil,
			owned: []string{"-c"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.owned))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	assert.Equal(t, "a.json", ConfigFileFlag([]string{"-c", "a.json", "-t", "3"}))
	assert.Equal(t, "b.toml", ConfigFileFlag([]string{"-config=b.toml"}))
	assert.Equal(t, "", ConfigFileFlag([]string{"-a", "http://x"}))
}
