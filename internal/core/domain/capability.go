package domain

import "strings"

// Capability is a single access right on a ticket channel. Adapters
// translate it to their platform's permission bits.
type Capability uint8

const (
	CapView Capability = 1 << iota
	CapSend
	CapReadHistory
	CapAttachFiles
	CapEmbedContent
	CapManageResource
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapView, "VIEW"},
	{CapSend, "SEND"},
	{CapReadHistory, "READ_HISTORY"},
	{CapAttachFiles, "ATTACH_FILES"},
	{CapEmbedContent, "EMBED_CONTENT"},
	{CapManageResource, "MANAGE_RESOURCE"},
}

// AllCapabilities lists every capability in a stable order.
func AllCapabilities() []Capability {
	caps := make([]Capability, 0, len(capabilityNames))
	for _, c := range capabilityNames {
		caps = append(caps, c.cap)
	}
	return caps
}

// CapabilitySet is a bit set of capabilities.
type CapabilitySet uint8

// Capabilities builds a set from individual capabilities.
func Capabilities(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// IsEmpty reports whether the set holds no capability.
func (s CapabilitySet) IsEmpty() bool {
	return s == 0
}

func (s CapabilitySet) String() string {
	names := make([]string, 0, len(capabilityNames))
	for _, c := range capabilityNames {
		if s.Has(c.cap) {
			names = append(names, c.name)
		}
	}
	return strings.Join(names, "|")
}

// PrincipalKind says who an overwrite applies to.
type PrincipalKind string

const (
	// PrincipalEveryone is the scope-wide default role.
	PrincipalEveryone PrincipalKind = "EVERYONE"
	PrincipalMember   PrincipalKind = "MEMBER"
	PrincipalRole     PrincipalKind = "ROLE"
	// PrincipalSelf is the broker's own account; adapters fill in its id.
	PrincipalSelf PrincipalKind = "SELF"
)

// Principal identifies the subject of an overwrite.
type Principal struct {
	Kind PrincipalKind
	ID   string
}

// Overwrite grants or denies capabilities to a principal on one channel.
type Overwrite struct {
	Principal Principal
	Allow     CapabilitySet
	Deny      CapabilitySet
}

// Capability sets granted on ticket channels.
var (
	OwnerCapabilities = Capabilities(CapView, CapSend, CapReadHistory, CapAttachFiles, CapEmbedContent)
	SelfCapabilities  = Capabilities(CapView, CapSend, CapManageResource, CapReadHistory)
	StaffCapabilities = Capabilities(CapView, CapSend, CapReadHistory, CapManageResource)
)

// CategoryOverwrites hides a ticket category from everyone in the scope.
func CategoryOverwrites(scopeID string) []Overwrite {
	return []Overwrite{
		{Principal: Principal{Kind: PrincipalEveryone, ID: scopeID}, Deny: Capabilities(CapView)},
	}
}

// TicketOverwrites builds the access list for a new ticket channel. The
// scope owner entry is skipped when the owner is unknown or is the ticket owner.
func TicketOverwrites(scopeID, ownerID, scopeOwnerID string) []Overwrite {
	overwrites := []Overwrite{
		{Principal: Principal{Kind: PrincipalEveryone, ID: scopeID}, Deny: Capabilities(CapView)},
		{Principal: Principal{Kind: PrincipalMember, ID: ownerID}, Allow: OwnerCapabilities},
		{Principal: Principal{Kind: PrincipalSelf}, Allow: SelfCapabilities},
	}
	if scopeOwnerID != "" && scopeOwnerID != ownerID {
		overwrites = append(overwrites, Overwrite{
			Principal: Principal{Kind: PrincipalMember, ID: scopeOwnerID},
			Allow:     StaffCapabilities,
		})
	}
	return overwrites
}
