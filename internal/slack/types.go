package slack

// User is a Slack user profile, fetched once at sign-in and replaced
// wholesale on re-authentication.
type User struct {
	ID                 string `json:"id"`
	RealName           string `json:"real_name"`
	RealNameNormalized string `json:"real_name_normalized"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	DisplayName        string `json:"display_name,omitempty"`
	Image              string `json:"image,omitempty"`
}

// Team is a Slack workspace.
type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Channel is a message destination. A direct-message conversation is
// represented with the counterpart user's display name as its Name.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
