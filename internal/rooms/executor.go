package rooms

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/models"

	"github.com/google/uuid"
)

const MaxUserLimit = 99

// Request is one owner command. RoomID is the voice room the issuer is
// currently connected to, empty when they are not in voice.
type Request struct {
	RequestID string
	GuildID   string
	IssuerID  string
	RoomID    string
	Command   models.Command
	TargetID  string
	Args      []string
}

type RoomSummary struct {
	RoomID      string
	Name        string
	OwnerID     string
	MemberCount int
	UserLimit   int
	Locked      bool
	Hidden      bool
}

type Result struct {
	RequestID string
	Command   models.Command
	RoomID    string
	TargetID  string
	Limit     int
	Name      string
	Info      *RoomSummary
}

// Executor authorizes owner commands and applies them to the platform.
type Executor struct {
	*env
}

// Execute runs req. Every rejection is an *Error whose Reason can be shown to
// the issuer; a rejected command never changes room state.
func (e *Executor) Execute(ctx context.Context, req Request) (Result, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if cmd, ok := models.ParseCommand(string(req.Command)); ok {
		req.Command = cmd
	}

	res, err := e.execute(ctx, req)
	res.RequestID = req.RequestID
	res.Command = req.Command

	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
		logging.Info("[COMMAND] %s by %s in room %s rejected: %v", req.Command, req.IssuerID, req.RoomID, err)
	} else {
		logging.Info("[COMMAND] %s by %s in room %s applied", req.Command, req.IssuerID, req.RoomID)
	}
	e.Metrics.CommandExecuted(string(req.Command), outcome)
	e.journal(req, outcome, err)
	return res, err
}

func (e *Executor) journal(req Request, outcome string, err error) {
	action := models.RoomAction{
		RequestID: req.RequestID,
		GuildID:   req.GuildID,
		ChannelID: req.RoomID,
		ActorID:   req.IssuerID,
		Command:   string(req.Command),
		TargetID:  req.TargetID,
		Outcome:   outcome,
		Timestamp: e.Now().Unix(),
	}
	if err != nil {
		action.Detail = ReasonOf(err)
	}
	if jerr := e.Journal.RecordAction(action); jerr != nil {
		logging.Warn("[COMMAND] Failed to journal %s: %v", req.RequestID, jerr)
	}
}

func (e *Executor) execute(ctx context.Context, req Request) (Result, error) {
	if _, ok := models.ParseCommand(string(req.Command)); !ok {
		return Result{}, newError(KindInvalidArgument, "unknown command %q", req.Command)
	}

	// unmute is self-service and does not depend on room ownership or
	// presence.
	if req.Command == models.CmdUnmute {
		return e.unmute(ctx, req)
	}

	if req.RoomID == "" {
		return Result{}, newError(KindNotInRoom, "you must be in a voice channel")
	}

	unlock, err := e.lock(ctx, req.RoomID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	room, tracked := e.Owners.Get(req.RoomID)
	if req.Command.OwnerOnly() {
		if !tracked {
			return Result{}, newError(KindNotAuthorized, "this voice channel is not a managed room")
		}
		if room.OwnerID != req.IssuerID {
			return Result{}, newError(KindNotAuthorized, "only the room owner can use %s", req.Command)
		}
	}

	if req.Command.NeedsTarget() {
		if req.TargetID == "" {
			return Result{}, newError(KindInvalidArgument, "mention a member to %s", req.Command)
		}
		if req.TargetID == req.IssuerID {
			return Result{}, newError(KindInvalidArgument, "you cannot %s yourself", req.Command)
		}
	}

	res := Result{RoomID: req.RoomID, TargetID: req.TargetID}
	everyone := models.Everyone(req.GuildID)

	switch req.Command {
	case models.CmdLock:
		err = e.overwrite(ctx, req.RoomID, models.OverwriteDelta{Subject: everyone, Deny: models.Caps(models.CapConnect)})
	case models.CmdUnlock:
		err = e.overwrite(ctx, req.RoomID, models.OverwriteDelta{Subject: everyone, Allow: models.Caps(models.CapConnect)})
	case models.CmdHide:
		err = e.overwrite(ctx, req.RoomID, models.OverwriteDelta{Subject: everyone, Deny: models.Caps(models.CapViewChannel)})
	case models.CmdUnhide:
		err = e.overwrite(ctx, req.RoomID, models.OverwriteDelta{Subject: everyone, Allow: models.Caps(models.CapViewChannel)})
	case models.CmdPermit:
		err = e.overwrite(ctx, req.RoomID, models.OverwriteDelta{Subject: models.Member(req.TargetID), Allow: models.Caps(models.CapConnect)})
	case models.CmdKick:
		err = e.kick(ctx, req)
	case models.CmdBan:
		err = e.ban(ctx, req)
	case models.CmdLimit:
		res.Limit, err = e.limit(ctx, req)
	case models.CmdRename:
		res.Name, err = e.rename(ctx, req)
	case models.CmdTransfer:
		err = e.transfer(ctx, req, room)
	case models.CmdInfo:
		res.Info, err = e.info(ctx, req, room)
	default:
		err = newError(KindInvalidArgument, "unknown command %q", req.Command)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (e *Executor) overwrite(ctx context.Context, roomID string, deltas ...models.OverwriteDelta) error {
	return e.call(ctx, "update permissions", func(ctx context.Context) error {
		return e.Platform.SetOverwrite(ctx, roomID, deltas...)
	})
}

func (e *Executor) members(ctx context.Context, roomID string) ([]string, error) {
	var members []string
	err := e.call(ctx, "read members", func(ctx context.Context) error {
		var err error
		members, err = e.Platform.GetCurrentMembers(ctx, roomID)
		return err
	})
	return members, err
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func (e *Executor) kick(ctx context.Context, req Request) error {
	members, err := e.members(ctx, req.RoomID)
	if err != nil {
		return err
	}
	if !contains(members, req.TargetID) {
		return newError(KindInvalidArgument, "that member is not in your room")
	}
	return e.call(ctx, "disconnect member", func(ctx context.Context) error {
		return e.Platform.DisconnectMember(ctx, req.GuildID, req.TargetID)
	})
}

// ban denies Connect to the target. Removing a target that is currently
// connected is best effort; the overwrite alone keeps them out.
func (e *Executor) ban(ctx context.Context, req Request) error {
	err := e.overwrite(ctx, req.RoomID, models.OverwriteDelta{
		Subject: models.Member(req.TargetID),
		Deny:    models.Caps(models.CapConnect),
	})
	if err != nil {
		return err
	}

	members, err := e.members(ctx, req.RoomID)
	if err != nil || !contains(members, req.TargetID) {
		return nil
	}
	err = e.call(ctx, "disconnect member", func(ctx context.Context) error {
		return e.Platform.DisconnectMember(ctx, req.GuildID, req.TargetID)
	})
	if err != nil {
		logging.Warn("[COMMAND] Banned %s from %s but disconnect failed: %v", req.TargetID, req.RoomID, err)
	}
	return nil
}

func (e *Executor) limit(ctx context.Context, req Request) (int, error) {
	if len(req.Args) == 0 {
		return 0, newError(KindInvalidArgument, "provide a number as limit")
	}
	n, err := strconv.Atoi(strings.TrimSpace(req.Args[0]))
	if err != nil {
		return 0, newError(KindInvalidArgument, "provide a number as limit")
	}
	if n < 0 || n > MaxUserLimit {
		return 0, newError(KindInvalidArgument, "limit must be between 0 and %d", MaxUserLimit)
	}
	err = e.call(ctx, "set user limit", func(ctx context.Context) error {
		return e.Platform.SetUserLimit(ctx, req.RoomID, n)
	})
	return n, err
}

func (e *Executor) rename(ctx context.Context, req Request) (string, error) {
	name := strings.TrimSpace(strings.Join(req.Args, " "))
	if name == "" {
		return "", newError(KindInvalidArgument, "provide a new name")
	}
	if len([]rune(name)) > models.MaxRoomNameLength {
		return "", newError(KindInvalidArgument, "names are limited to %d characters", models.MaxRoomNameLength)
	}
	err := e.call(ctx, "rename room", func(ctx context.Context) error {
		return e.Platform.SetName(ctx, req.RoomID, name)
	})
	return name, err
}

// transfer moves the owner grant in a single overwrite update, then records
// the new owner. Both happen under the room lock, so no other command sees
// the room between the two.
func (e *Executor) transfer(ctx context.Context, req Request, room models.EphemeralChannel) error {
	err := e.overwrite(ctx, req.RoomID,
		models.OverwriteDelta{Subject: models.Member(room.OwnerID), Reset: models.OwnerGrant},
		models.OverwriteDelta{Subject: models.Member(req.TargetID), Allow: models.OwnerGrant},
	)
	if err != nil {
		return err
	}
	if err := e.Owners.SetOwner(req.RoomID, req.TargetID); err != nil {
		logging.Warn("[COMMAND] %v", err)
	}
	return nil
}

func (e *Executor) info(ctx context.Context, req Request, room models.EphemeralChannel) (*RoomSummary, error) {
	var info models.RoomInfo
	err := e.call(ctx, "read room", func(ctx context.Context) error {
		var err error
		info, err = e.Platform.GetRoom(ctx, req.RoomID)
		return err
	})
	if err != nil {
		return nil, err
	}
	members, err := e.members(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	return &RoomSummary{
		RoomID:      req.RoomID,
		Name:        info.Name,
		OwnerID:     room.OwnerID,
		MemberCount: len(members),
		UserLimit:   info.UserLimit,
		Locked:      info.Locked(),
		Hidden:      info.Hidden(),
	}, nil
}

func (e *Executor) unmute(ctx context.Context, req Request) (Result, error) {
	if req.TargetID != "" && req.TargetID != req.IssuerID {
		return Result{}, newError(KindInvalidArgument, "you can only unmute yourself")
	}
	err := e.call(ctx, "unmute", func(ctx context.Context) error {
		return e.Platform.SetServerMute(ctx, req.GuildID, req.IssuerID, false)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{RoomID: req.RoomID, TargetID: req.IssuerID}, nil
}

// Describe renders a one-line confirmation of a successful command.
func Describe(res Result) string {
	target := fmt.Sprintf("<@%s>", res.TargetID)
	switch res.Command {
	case models.CmdLock:
		return "Room has been locked."
	case models.CmdUnlock:
		return "Room has been unlocked."
	case models.CmdHide:
		return "Room is now hidden."
	case models.CmdUnhide:
		return "Room is visible again."
	case models.CmdKick:
		return target + " has been kicked from your room."
	case models.CmdBan:
		return target + " has been banned from your room."
	case models.CmdPermit:
		return target + " is now allowed in your room."
	case models.CmdLimit:
		if res.Limit == 0 {
			return "Room user limit removed."
		}
		return fmt.Sprintf("Room user limit set to %d.", res.Limit)
	case models.CmdRename:
		return fmt.Sprintf("Room renamed to %s.", res.Name)
	case models.CmdTransfer:
		return "Room ownership transferred to " + target + "."
	case models.CmdUnmute:
		return "You are now unmuted."
	default:
		return "Done."
	}
}
