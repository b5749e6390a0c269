package domain

// Wire types for the JSON API. Field names follow the original message
// sharing protocol: the secret body travels as encrypted_message and the
// record identifier as view.

type CreateReq struct {
	Ciphertext string `json:"encrypted_message"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
	TTLDays    *int   `json:"ttl"` // days; 0 means permanent, nil means default
	CreatorUID string `json:"creator_uid"`
	Label      string `json:"custom_name,omitempty"`
}

type CreateRes struct {
	ID string `json:"view"`
}

type ViewReq struct {
	ID  string `json:"view"`
	UID string `json:"uid"`
}

type ViewRes struct {
	Ciphertext string `json:"encrypted_message"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
	Label      string `json:"custom_name"`
	IsOwner    bool   `json:"is_owner"`
}

type ClaimReq struct {
	ID         string `json:"view"`
	UID        string `json:"uid"`
	Ciphertext string `json:"encrypted_message"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
}

type RenameReq struct {
	ID    string `json:"view"`
	UID   string `json:"uid"`
	Label string `json:"custom_name"`
}

type DeleteReq struct {
	ID  string `json:"view"`
	UID string `json:"uid"`
}

type StatusRes struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ListReq struct {
	UID     string `json:"uid"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

// ListItem is one row of an owned or pending listing. DaysRemaining keeps the
// historical name even though the value switches to hours or minutes as the
// deadline nears; Display carries the human-readable form.
type ListItem struct {
	ID            string `json:"id"`
	Label         string `json:"custom_name"`
	DaysRemaining int64  `json:"days_remaining"`
	Display       string `json:"time_remaining_display"`
	DisplayType   string `json:"time_remaining_type"`
}

type ListRes struct {
	Secrets []ListItem `json:"secrets"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
	Total   int        `json:"total"`
	HasMore bool       `json:"has_more"`
}
