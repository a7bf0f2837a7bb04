package mentions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"no mentions", "plain text without handles", nil},
		{"single", "ping @alice about this", []string{"alice"}},
		{"multiple", "@alice and @bob should review", []string{"alice", "bob"}},
		{"duplicates preserved", "@alice then @alice again", []string{"alice", "alice"}},
		{"underscore and digits", "cc @team_lead2", []string{"team_lead2"}},
		{"punctuation terminates", "thanks @carol, see you", []string{"carol"}},
		{"email is matched after at", "mail me at dev@example.com", []string{"example"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}
