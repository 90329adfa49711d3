package domain

// Company identifies the tenant's business.
type Company struct {
	Name    string `json:"name"`
	Slogan  string `json:"slogan"`
	TaxID   string `json:"taxId"`
	Contact string `json:"contact"`
	Logo    string `json:"logo"`
}

// Notifications toggles the alert categories shown to the tenant.
type Notifications struct {
	LowStock  bool `json:"lowStock"`
	Deadlines bool `json:"deadlines"`
}

// Appearance holds presentation preferences.
type Appearance struct {
	Theme      string `json:"theme"`
	Density    string `json:"density"`
	LayoutMode string `json:"layoutMode"`
}

// Settings is the single per-tenant configuration record.
type Settings struct {
	Company       Company       `json:"company"`
	Notifications Notifications `json:"notifications"`
	Appearance    Appearance    `json:"appearance"`
}

// SettingsPatch is a partial update to Settings. A nil section or field is
// left untouched by MergeSettings.
type SettingsPatch struct {
	Company       *CompanyPatch       `json:"company,omitempty"`
	Notifications *NotificationsPatch `json:"notifications,omitempty"`
	Appearance    *AppearancePatch    `json:"appearance,omitempty"`
}

type CompanyPatch struct {
	Name    *string `json:"name,omitempty"`
	Slogan  *string `json:"slogan,omitempty"`
	TaxID   *string `json:"taxId,omitempty"`
	Contact *string `json:"contact,omitempty"`
	Logo    *string `json:"logo,omitempty"`
}

type NotificationsPatch struct {
	LowStock  *bool `json:"lowStock,omitempty"`
	Deadlines *bool `json:"deadlines,omitempty"`
}

type AppearancePatch struct {
	Theme      *string `json:"theme,omitempty"`
	Density    *string `json:"density,omitempty"`
	LayoutMode *string `json:"layoutMode,omitempty"`
}

// MergeSettings applies patch on top of current one section at a time. Within
// a section the result holds every key of current, with the keys the patch
// sets taking the patch's value. Sections the patch omits are unchanged.
func MergeSettings(current Settings, patch SettingsPatch) Settings {
	out := current
	if c := patch.Company; c != nil {
		set(&out.Company.Name, c.Name)
		set(&out.Company.Slogan, c.Slogan)
		set(&out.Company.TaxID, c.TaxID)
		set(&out.Company.Contact, c.Contact)
		set(&out.Company.Logo, c.Logo)
	}
	if n := patch.Notifications; n != nil {
		set(&out.Notifications.LowStock, n.LowStock)
		set(&out.Notifications.Deadlines, n.Deadlines)
	}
	if a := patch.Appearance; a != nil {
		set(&out.Appearance.Theme, a.Theme)
		set(&out.Appearance.Density, a.Density)
		set(&out.Appearance.LayoutMode, a.LayoutMode)
	}
	return out
}

// Empty reports whether the patch names no section at all.
func (p SettingsPatch) Empty() bool {
	return p.Company == nil && p.Notifications == nil && p.Appearance == nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
