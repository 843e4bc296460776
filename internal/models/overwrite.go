package models

type SubjectKind uint8

const (
	SubjectRole SubjectKind = iota
	SubjectMember
)

// Subject is who an overwrite applies to. The "everyone" role of a guild
// shares the guild's id.
type Subject struct {
	ID   string
	Kind SubjectKind
}

func Everyone(guildID string) Subject {
	return Subject{ID: guildID, Kind: SubjectRole}
}

func Member(memberID string) Subject {
	return Subject{ID: memberID, Kind: SubjectMember}
}

// Overwrite is the allow/deny state of one subject on one room. A capability
// in neither set is inherited.
type Overwrite struct {
	Subject Subject
	Allow   CapabilitySet
	Deny    CapabilitySet
}

func (o Overwrite) Allows(c Capability) bool {
	return o.Allow.Has(c)
}

func (o Overwrite) Denies(c Capability) bool {
	return o.Deny.Has(c)
}

// OverwriteDelta changes part of a subject's overwrite. Reset returns the
// listed capabilities to inherited. A capability must appear in at most one
// of the three sets.
type OverwriteDelta struct {
	Subject Subject
	Allow   CapabilitySet
	Deny    CapabilitySet
	Reset   CapabilitySet
}

// Touched is every capability the delta speaks about.
func (d OverwriteDelta) Touched() CapabilitySet {
	return d.Allow | d.Deny | d.Reset
}

// Apply merges the delta into an existing overwrite for the same subject.
func (d OverwriteDelta) Apply(o Overwrite) Overwrite {
	touched := d.Touched()
	o.Subject = d.Subject
	o.Allow = o.Allow.Without(touched).Union(d.Allow)
	o.Deny = o.Deny.Without(touched).Union(d.Deny)
	return o
}

// FindOverwrite returns the overwrite for subject, or an empty one.
func FindOverwrite(list []Overwrite, subject Subject) (Overwrite, bool) {
	for _, o := range list {
		if o.Subject.ID == subject.ID {
			return o, true
		}
	}
	return Overwrite{Subject: subject}, false
}

// ApplyDeltas merges deltas into a full overwrite list, appending subjects
// that had no overwrite yet. The input slice is not modified.
func ApplyDeltas(list []Overwrite, deltas ...OverwriteDelta) []Overwrite {
	out := make([]Overwrite, len(list))
	copy(out, list)
	for _, d := range deltas {
		found := false
		for i := range out {
			if out[i].Subject.ID == d.Subject.ID {
				out[i] = d.Apply(out[i])
				found = true
				break
			}
		}
		if !found {
			out = append(out, d.Apply(Overwrite{Subject: d.Subject}))
		}
	}
	return out
}

// OwnerGrant is what the owner of a room holds on top of the room defaults.
var OwnerGrant = Caps(CapConnect, CapViewChannel, CapManageChannels, CapMuteMembers)

// InitialOverwrites is the canonical overwrite set of a freshly provisioned
// room.
func InitialOverwrites(class VisibilityClass, guildID, ownerID string) []Overwrite {
	switch class {
	case Private:
		return []Overwrite{
			{Subject: Everyone(guildID), Deny: Caps(CapConnect)},
			{Subject: Member(ownerID), Allow: OwnerGrant},
		}
	default:
		return []Overwrite{
			{Subject: Everyone(guildID), Allow: Caps(CapConnect, CapViewChannel)},
		}
	}
}
