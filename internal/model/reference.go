package model

import "fmt"

// Reference is the correlation token attached to external payment records.
// The provider echoes it back in webhooks, which lets us recover the
// purchase intent (who bought what) from a bare payment event.
type Reference struct {
	SteamID   string
	DiscordID string
	Package   *Package
}

func NewReference(steamID, discordID string, pkg *Package) Reference {
	return Reference{
		SteamID:   steamID,
		DiscordID: discordID,
		Package:   pkg,
	}
}

// String encodes the reference as "<steamId-or-discordId>#<packageId>".
// Steam id is preferred; the discord id stands in when the member never
// linked a steam account. Treated as an opaque ASCII token provider-side.
func (r Reference) String() string {
	id := r.SteamID
	if id == "" {
		id = r.DiscordID
	}
	return fmt.Sprintf("%s#%d", id, r.Package.ID)
}
