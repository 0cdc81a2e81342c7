package domain

import "time"

// Panel text limits.
const (
	MaxPanelBodyLength = 4000
	DefaultPanelBody   = "Click the button below to open a support ticket.\n\nOur staff team will assist you shortly!"
)

// PanelConfig is the per-scope ticket panel. It is replaced wholesale on
// every reconfiguration.
type PanelConfig struct {
	ScopeID         string
	NotifyChannelID string
	MessageID       string
	NotifyRoleID    string
	BodyText        string
	UpdatedAt       time.Time
}

// HasNotifyRole reports whether new tickets should ping a role.
func (p *PanelConfig) HasNotifyRole() bool {
	return p.NotifyRoleID != ""
}
