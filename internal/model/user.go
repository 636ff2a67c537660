package model

// User identifies a donating community member. SteamID may be empty for
// members who only linked Discord.
type User struct {
	SteamID   string
	DiscordID string
}

// RedeemTarget is where an order's perks get granted.
type RedeemTarget struct {
	SteamID   string
	DiscordID string
}
