package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantType CommandType
		wantArgs []string
	}{
		{"", CmdHelp, nil},
		{"help", CmdHelp, nil},
		{"list", CmdList, []string{}},
		{"ls 04.11.2020", CmdList, []string{"04.11.2020"}},
		{"update", CmdUpdate, nil},
		{"dm enable", CmdDMEnable, nil},
		{"dm disable", CmdDMDisable, nil},
		{"dm remove", CmdDMRemove, nil},
		{"dm get", CmdDMGet, nil},
		{"dm set send-before 45", CmdDMSet, []string{"send-before", "45"}},
		{"  dm   set  send-after-previous on ", CmdDMSet, []string{"send-after-previous", "on"}},
	}

	for _, tt := range tests {
		cmd, err := ParseCommand(tt.text)
		require.NoError(t, err, "text %q", tt.text)
		assert.Equal(t, tt.wantType, cmd.Type, "text %q", tt.text)
		if len(tt.wantArgs) > 0 {
			assert.Equal(t, tt.wantArgs, cmd.Args, "text %q", tt.text)
		}
	}
}

func TestParseCommandRejectsUnknown(t *testing.T) {
	for _, text := range []string{"frobnicate", "dm", "dm frobnicate"} {
		_, err := ParseCommand(text)
		assert.Error(t, err, "text %q", text)
	}
}
