package models

// NavItem is one entry of the site navigation bar
type NavItem struct {
	Label      string `json:"label"`
	Href       string `json:"href"`
	MemberOnly bool   `json:"member_only,omitempty"`
	Action     string `json:"action,omitempty"` // "login" or "logout" for the auth button
	Tooltip    string `json:"tooltip,omitempty"`
}

// Navigation is the navigation bar as seen by one visitor
type Navigation struct {
	Authenticated bool      `json:"authenticated"`
	Username      string    `json:"username,omitempty"`
	Items         []NavItem `json:"items"`
}
