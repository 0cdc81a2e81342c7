package domain

// Caller is the identity behind a command, as resolved by the adapter that
// received it. The core trusts these fields.
type Caller struct {
	UserID            string
	ScopeID           string
	DisplayName       string
	ScopeOwnerID      string
	CanManageChannels bool
	IsAdministrator   bool
	// ContextResourceID is the channel the command was issued from.
	ContextResourceID string
}

// IsScopeOwner reports whether the caller owns the scope.
func (c Caller) IsScopeOwner() bool {
	return c.ScopeOwnerID != "" && c.UserID == c.ScopeOwnerID
}

// CanManageTickets reports whether the caller may close tickets and
// configure the panel.
func (c Caller) CanManageTickets() bool {
	return c.CanManageChannels || c.IsAdministrator || c.IsScopeOwner()
}
