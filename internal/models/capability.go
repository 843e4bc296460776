package models

import "strings"

type Capability uint8

const (
	CapConnect Capability = 1 << iota
	CapViewChannel
	CapManageChannels
	CapMuteMembers
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapConnect, "Connect"},
	{CapViewChannel, "ViewChannel"},
	{CapManageChannels, "ManageChannels"},
	{CapMuteMembers, "MuteMembers"},
}

// AllCapabilities is the full vocabulary an overwrite can speak about.
var AllCapabilities = Caps(CapConnect, CapViewChannel, CapManageChannels, CapMuteMembers)

func (c Capability) String() string {
	for _, n := range capabilityNames {
		if n.cap == c {
			return n.name
		}
	}
	return "Unknown"
}

// CapabilitySet is a bitset over Capability.
type CapabilitySet uint8

func Caps(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

func (s CapabilitySet) Union(o CapabilitySet) CapabilitySet {
	return s | o
}

func (s CapabilitySet) Without(o CapabilitySet) CapabilitySet {
	return s &^ o
}

func (s CapabilitySet) Empty() bool {
	return s == 0
}

func (s CapabilitySet) String() string {
	if s == 0 {
		return "[]"
	}
	var parts []string
	for _, n := range capabilityNames {
		if s.Has(n.cap) {
			parts = append(parts, n.name)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}
