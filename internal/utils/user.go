package utils

import (
	"math/rand/v2"
)

var avatarEmojis = []string{"🌱", "🌿", "🍃", "📚", "🎓", "🧠", "💡", "🚀", "🐼", "🦊", "🐨", "🦉"}

// GetRandomEmoji picks a default avatar for new users.
func GetRandomEmoji() string {
	return avatarEmojis[rand.IntN(len(avatarEmojis))]
}

// IsAvatarChoice reports whether e is one of the selectable avatars.
func IsAvatarChoice(e string) bool {
	for _, a := range avatarEmojis {
		if a == e {
			return true
		}
	}
	return false
}

// AvatarChoices lists the avatars offered on the settings page.
func AvatarChoices() []string {
	out := make([]string, len(avatarEmojis))
	copy(out, avatarEmojis)
	return out
}
