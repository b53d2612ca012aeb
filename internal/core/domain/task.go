package domain

// RequirementType identifies how a task requirement is fulfilled.
type RequirementType string

const (
	RequirementTelegram RequirementType = "tg_subscribe"
	RequirementWebsite  RequirementType = "website"
	RequirementTwitter  RequirementType = "twitter"
	RequirementBoost    RequirementType = "boost"
	RequirementLeague   RequirementType = "league"
)

// AdRequirementID is the requirement that is completed by watching an ad.
const AdRequirementID = 115

// TaskSection groups tasks under a title.
type TaskSection struct {
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

// Task is a rewarded quest with one or more requirements.
type Task struct {
	Name         string        `json:"name"`
	Reward       int64         `json:"reward"`
	Requirements []Requirement `json:"requirements"`
}

// Requirement is a single checkable step of a task.
type Requirement struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Type       RequirementType `json:"type"`
	TgLink     string          `json:"tgLink"`
	WebsiteURL string          `json:"websiteUrl"`
	LeagueID   int64           `json:"leagueId"`
}

// Hint returns the link or target a user would need to fulfil the
// requirement manually.
func (r Requirement) Hint() string {
	switch r.Type {
	case RequirementTelegram, RequirementBoost:
		return r.TgLink
	case RequirementWebsite, RequirementTwitter:
		return r.WebsiteURL
	}
	return ""
}
