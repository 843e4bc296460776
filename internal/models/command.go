package models

import "strings"

type Command string

const (
	CmdLock     Command = "lock"
	CmdUnlock   Command = "unlock"
	CmdHide     Command = "hide"
	CmdUnhide   Command = "unhide"
	CmdKick     Command = "kick"
	CmdBan      Command = "ban"
	CmdPermit   Command = "permit"
	CmdLimit    Command = "limit"
	CmdRename   Command = "rename"
	CmdTransfer Command = "transfer"
	CmdInfo     Command = "info"
	CmdUnmute   Command = "unmute"
)

var AllCommands = []Command{
	CmdLock, CmdUnlock, CmdHide, CmdUnhide, CmdKick, CmdBan,
	CmdPermit, CmdLimit, CmdRename, CmdTransfer, CmdInfo, CmdUnmute,
}

func ParseCommand(s string) (Command, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range AllCommands {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// NeedsTarget reports whether the command acts on another member.
func (c Command) NeedsTarget() bool {
	switch c {
	case CmdKick, CmdBan, CmdPermit, CmdTransfer:
		return true
	}
	return false
}

// OwnerOnly reports whether only the room owner may run the command.
func (c Command) OwnerOnly() bool {
	switch c {
	case CmdInfo, CmdUnmute:
		return false
	}
	return true
}
