package rooms

import (
	"context"

	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/models"
)

type ProvisionResult struct {
	Room  models.EphemeralChannel
	Moved bool
}

// Provisioner creates a room for every member joining a trigger channel.
type Provisioner struct {
	*env
	triggers *TriggerRegistry
}

// OnMemberJoinedChannel returns nil, nil when the event is not a trigger join.
// A room whose owner could not be moved in is returned together with the
// error; it stays tracked and is reclaimed by the Reaper once empty.
func (p *Provisioner) OnMemberJoinedChannel(ctx context.Context, ev models.MembershipEvent) (*ProvisionResult, error) {
	if !ev.Joined() {
		return nil, nil
	}
	policy, ok := p.triggers.Classify(ev)
	if !ok {
		return nil, nil
	}

	spec := models.RoomSpec{
		GuildID:    ev.GuildID,
		Name:       models.RoomName(ev.MemberName),
		ParentID:   policy.CategoryID,
		Kind:       models.RoomVoice,
		Overwrites: models.InitialOverwrites(policy.Visibility, ev.GuildID, ev.MemberID),
	}

	var roomID string
	err := p.call(ctx, "create room", func(ctx context.Context) error {
		id, err := p.Platform.CreateRoom(ctx, spec)
		roomID = id
		return err
	})
	if err != nil {
		logging.Warn("[PROVISION] Create failed for member %s in guild %s (trigger %s): %v",
			ev.MemberID, ev.GuildID, ev.ToChannelID, err)
		p.Metrics.ProvisionFailed()
		p.Notifier.ProvisionFailed(ctx, ev, err)
		return nil, err
	}

	room := models.EphemeralChannel{
		ID:         roomID,
		GuildID:    ev.GuildID,
		ParentID:   policy.CategoryID,
		Visibility: policy.Visibility,
		OwnerID:    ev.MemberID,
		CreatedAt:  p.Now(),
	}
	result := &ProvisionResult{Room: room}

	unlock, err := p.lock(ctx, roomID)
	if err != nil {
		if terr := p.Owners.Track(room); terr != nil {
			logging.Warn("[PROVISION] %v", terr)
		}
		p.Notifier.ProvisionFailed(ctx, ev, err)
		return result, err
	}
	defer unlock()

	if err := p.Owners.Track(room); err != nil {
		logging.Warn("[PROVISION] %v", err)
	}
	p.Metrics.RoomProvisioned(policy.Visibility)

	err = p.call(ctx, "move member", func(ctx context.Context) error {
		return p.Platform.MoveMember(ctx, ev.GuildID, ev.MemberID, roomID)
	})
	if err != nil {
		logging.Warn("[PROVISION] Room %s created but moving %s failed: %v", roomID, ev.MemberID, err)
		p.Notifier.ProvisionFailed(ctx, ev, err)
		return result, err
	}

	result.Moved = true
	logging.Info("[PROVISION] %s room %s created for %s in guild %s",
		policy.Visibility, roomID, ev.MemberID, ev.GuildID)
	return result, nil
}
