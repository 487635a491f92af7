package domain

const (
	// DefaultHistoryLimit is the number of unpinned entries kept by default.
	DefaultHistoryLimit = 50

	// Hotkey modifier bits.
	ModCtrl  = 1
	ModAlt   = 2
	ModShift = 4
	ModWin   = 8

	defaultHotkeyKey = 0x56 // V
)

// Hotkey describes the global shortcut handed to the hotkey collaborator.
type Hotkey struct {
	Modifiers int `yaml:"modifiers" json:"modifiers"`
	Key       int `yaml:"key" json:"key"`
}

// AppSettings is the application-wide settings singleton.
//
// The capture pipeline only reads HistoryLimit; the remaining fields are
// carried for the UI, tray and hotkey collaborators.
type AppSettings struct {
	HistoryLimit    int      `yaml:"history_limit" json:"history_limit"`
	Hotkey          Hotkey   `yaml:"hotkey" json:"hotkey"`
	RunOnStartup    bool     `yaml:"run_on_startup" json:"run_on_startup"`
	Theme           string   `yaml:"theme" json:"theme"`
	WidgetPositionX *float64 `yaml:"widget_position_x,omitempty" json:"widget_position_x,omitempty"`
	WidgetPositionY *float64 `yaml:"widget_position_y,omitempty" json:"widget_position_y,omitempty"`
	IsPanelExpanded bool     `yaml:"panel_expanded" json:"panel_expanded"`
}

// DefaultSettings returns the settings used on first run.
func DefaultSettings() AppSettings {
	return AppSettings{
		HistoryLimit: DefaultHistoryLimit,
		Hotkey: Hotkey{
			Modifiers: ModCtrl | ModShift,
			Key:       defaultHotkeyKey,
		},
		Theme: "Dark",
	}
}

// Clone returns a copy that shares no pointers with s.
func (s AppSettings) Clone() AppSettings {
	c := s
	if s.WidgetPositionX != nil {
		x := *s.WidgetPositionX
		c.WidgetPositionX = &x
	}
	if s.WidgetPositionY != nil {
		y := *s.WidgetPositionY
		c.WidgetPositionY = &y
	}
	return c
}
