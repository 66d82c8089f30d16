package store

// Keys are namespaced under "sortir:" so the medium can be shared.
const (
	keyPrefix = "sortir:"

	// KeyFavorites holds the ordered favorites list.
	KeyFavorites = keyPrefix + "favorites"
	// KeyFavoritesQuarantine holds a favorites value that could not be decoded.
	KeyFavoritesQuarantine = KeyFavorites + ":quarantine"
	// KeySession holds the sealed identity session.
	KeySession = keyPrefix + "session"
)
