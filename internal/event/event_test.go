package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/payload"
)

func known(names ...string) func(string) bool {
	return func(n string) bool {
		for _, name := range names {
			if name == n {
				return true
			}
		}
		return false
	}
}

func TestParseTextCommand(t *testing.T) {
	ev := ParseText(Origin{}, "/Add_Friend@GeoPalBot now", known("/add_friend"))
	cmd, ok := ev.(Command)
	require.True(t, ok)
	assert.Equal(t, "/add_friend", cmd.Name)
	assert.Equal(t, "now", cmd.Args)
	assert.True(t, cmd.Known)
}

func TestParseTextUnknownCommand(t *testing.T) {
	cmd, ok := ParseText(Origin{}, "/dance", known("/start")).(Command)
	require.True(t, ok)
	assert.False(t, cmd.Known)
}

func TestParseTextFreeText(t *testing.T) {
	for _, text := range []string{"hi", "/", " ❌ ", "see /help"} {
		_, ok := ParseText(Origin{}, text, nil).(FreeText)
		assert.True(t, ok, text)
	}
	assert.True(t, FreeText{Text: " ❌ "}.IsAbort())
	assert.False(t, FreeText{Text: "no"}.IsAbort())
}

func TestNewControl(t *testing.T) {
	c := NewControl(Origin{}, "remove_friend:abort")
	assert.NoError(t, c.Err)
	assert.Equal(t, payload.RemoveAbort{}, c.Payload)

	bad := NewControl(Origin{}, "remove_friend:x:y")
	assert.ErrorIs(t, bad.Err, failure.ErrInvalidControlPayload)
	assert.Nil(t, bad.Payload)
	assert.Equal(t, "control", Kind(bad))
}
