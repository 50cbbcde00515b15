package model

// BannerKind styles a banner message.
type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
)

// Banner is the transient message shown after an action.
type Banner struct {
	Text    string     `json:"text"`
	Kind    BannerKind `json:"kind"`
	Visible bool       `json:"visible"`
}

// ParticipantRow is one rendered roster entry.
type ParticipantRow struct {
	Initials    string `json:"initials"`
	DisplayName string `json:"display_name"`
	RemoveKey   string `json:"remove_key"`
}

// ActivityCard is the rendered form of one Activity.
type ActivityCard struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Schedule     string           `json:"schedule"`
	SpotsLeft    int              `json:"spots_left"`
	Overbooked   bool             `json:"overbooked"`
	Participants []ParticipantRow `json:"participants"`
}

// ViewState is the part of the board shared by every visitor. It is rebuilt
// from scratch on every refresh.
type ViewState struct {
	Cards       []ActivityCard `json:"cards"`
	Options     []string       `json:"options"`
	LoadFailure string         `json:"load_failure,omitempty"`
	Loaded      bool           `json:"loaded"`
}

// ActionResult is what one signup or unregister produced for the visitor
// who triggered it. The zero value means nothing to show.
type ActionResult struct {
	Banner Banner     `json:"banner"`
	Form   SignupForm `json:"form"`
}

// Clone returns a deep copy safe to hand to a renderer.
func (v ViewState) Clone() ViewState {
	out := v
	if v.Cards != nil {
		out.Cards = make([]ActivityCard, len(v.Cards))
		for i, c := range v.Cards {
			c.Participants = append([]ParticipantRow(nil), c.Participants...)
			out.Cards[i] = c
		}
	}
	out.Options = append([]string(nil), v.Options...)
	return out
}
