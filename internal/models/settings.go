package models

// DispatcherSettingsID is the fixed key of the settings singleton
const DispatcherSettingsID = "dispatcher-settings"

// DispatcherSettings holds the dispatcher QR login token and the report recipient
type DispatcherSettings struct {
	ID          string `json:"id"`
	QRToken     string `json:"qrToken,omitempty"`
	ReportEmail string `json:"reportEmail,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt,omitempty"`
}

func (d DispatcherSettings) GetID() string { return d.ID }

type DispatcherSettingsUpdate struct {
	QRToken     *string `json:"qrToken,omitempty"`
	ReportEmail *string `json:"reportEmail,omitempty"`
}

func (u DispatcherSettingsUpdate) Apply(d *DispatcherSettings) error {
	setString(&d.QRToken, u.QRToken)
	setString(&d.ReportEmail, u.ReportEmail)
	d.UpdatedAt = NowMillis()
	return nil
}
