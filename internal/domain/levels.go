// Package domain defines shared domain constants and types.
package domain

const (
	// LevelUnregistered is assumed for any sender without a stored record.
	LevelUnregistered = 0
	// LevelMember is granted when a user is first seen in a chat.
	LevelMember = 1
	// LevelRegistered is granted on explicit self-registration via /register.
	LevelRegistered = 2
	// LevelOwner is the resolution-time level of the configured bot owner.
	LevelOwner = 9
)
