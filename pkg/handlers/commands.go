package handlers

import (
	"fmt"
	"strings"
)

type CommandType string

const (
	CmdList      CommandType = "list"
	CmdUpdate    CommandType = "update"
	CmdDMEnable  CommandType = "dm-enable"
	CmdDMDisable CommandType = "dm-disable"
	CmdDMRemove  CommandType = "dm-remove"
	CmdDMSet     CommandType = "dm-set"
	CmdDMGet     CommandType = "dm-get"
	CmdHelp      CommandType = "help"
)

type Command struct {
	Type CommandType
	Args []string
}

// ParseCommand parses the free text of a slash command invocation.
func ParseCommand(text string) (*Command, error) {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return &Command{Type: CmdHelp}, nil
	}

	switch parts[0] {
	case "list", "ls":
		return &Command{Type: CmdList, Args: parts[1:]}, nil
	case "update":
		return &Command{Type: CmdUpdate}, nil
	case "help":
		return &Command{Type: CmdHelp}, nil
	case "dm":
		if len(parts) < 2 {
			return nil, fmt.Errorf("unknown command: dm")
		}
		switch parts[1] {
		case "enable":
			return &Command{Type: CmdDMEnable}, nil
		case "disable":
			return &Command{Type: CmdDMDisable}, nil
		case "remove":
			return &Command{Type: CmdDMRemove}, nil
		case "set":
			return &Command{Type: CmdDMSet, Args: parts[2:]}, nil
		case "get":
			return &Command{Type: CmdDMGet}, nil
		default:
			return nil, fmt.Errorf("unknown subcommand: dm %s", parts[1])
		}
	default:
		return nil, fmt.Errorf("unknown command: %s", parts[0])
	}
}

const helpText = "Verfügbare Befehle:\n" +
	"• `list [TT.MM.JJJJ]` - Lehrveranstaltungen anzeigen\n" +
	"• `update` - Stundenplan neu einlesen\n" +
	"• `dm enable` / `dm disable` / `dm remove` - Direktnachrichten verwalten\n" +
	"• `dm set send-before <Minuten|off>` - Vorlaufzeit setzen\n" +
	"• `dm set send-after-previous <on|off>` - Erinnerung nach vorheriger Veranstaltung\n" +
	"• `dm get` - Konfiguration anzeigen"
