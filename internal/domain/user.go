package domain

// UserRecord is a registered member of a single chat. Field tags follow the
// legacy database.json layout, misspellings included, so existing store files
// keep loading.
type UserRecord struct {
	UserID       int64  `json:"user_id"`
	FirstName    string `json:"user_first_name"`
	AccessLevel  int    `json:"access_control"`
	RegisteredAt string `json:"data_registation"`
}
