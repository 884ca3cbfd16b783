package domain

import "strconv"

// ChatRecord holds the users registered in one chat, keyed by decimal user id.
type ChatRecord struct {
	Users map[string]UserRecord `json:"users_id"`
}

// Database is the full persisted user store: every chat the bot has seen,
// keyed by decimal chat id.
type Database struct {
	Chats map[string]ChatRecord `json:"chats"`
}

// NewDatabase returns an empty store with the chats map initialized.
func NewDatabase() Database {
	return Database{Chats: map[string]ChatRecord{}}
}

// ChatKey converts a chat id into its JSON object key.
func ChatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// UserKey converts a user id into its JSON object key.
func UserKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
