// Package names generates deterministic tab names (emoji + adjective +
// noun). Every plugin instance in a session derives the same seed from the
// session name, so auto-assigned names agree without coordination.
package names

var emojis = []string{
	"🌟", "🚀", "🎨", "🌈", "⚡", "🔥", "❄️", "🌸", "🍀", "🦄",
	"🐉", "🦋", "🐢", "🦊", "🐙", "🦜", "🌺", "🍄", "🌙", "☀️",
	"💎", "🏔️", "🌊", "🍃", "🎭", "🎪", "🎯", "🎲", "🔮", "💫",
	"🎸", "🎹", "🎺", "🎷", "🥁", "🎵", "🎶", "🎼", "🎤", "🎧",
	"📚", "📖", "💡", "🔍", "🔬", "🔭", "🔧", "⚙️", "🗝️", "🛡️",
	"🌱", "🌿", "🍁", "🍂", "🌾", "🌵", "🌴", "🌲", "🌳", "🌷",
	"🏖️", "🏝️", "🏜️", "🏞️", "🗻", "🌋", "🏛️", "🏰", "🗼", "🌉",
	"🦁", "🐯", "🐨", "🐼", "🦘", "🦓", "🦒", "🦌", "🦚", "🦩",
	"🍎", "🍊", "🍋", "🍓", "🍇", "🍉", "🥝", "🍑", "🍒", "🥭",
	"⭐", "✨", "🌠", "☄️", "🌌", "🪐", "🛸", "🚁", "✈️", "🛩️",
}

var adjectives = []string{
	"happy", "bright", "swift", "gentle", "mighty", "clever", "brave", "calm",
	"eager", "jolly", "keen", "lively", "merry", "proud", "quirky", "radiant",
	"serene", "vivid", "witty", "zesty", "cosmic", "mystic", "noble", "ornate",
	"plucky", "rustic", "sleek", "unique", "valiant", "whimsical", "agile", "bold",
	"crisp", "daring", "elegant", "fierce", "graceful", "humble", "intense", "jovial",
	"kindly", "luminous", "majestic", "nimble", "peaceful", "quick", "royal", "spirited",
	"tranquil", "upbeat", "vibrant", "wise", "zealous", "artistic", "bouncy", "charming",
	"dreamy", "ethereal", "friendly", "gleaming", "heroic", "inspired", "joyful", "kinetic",
}

var nouns = []string{
	"fox", "star", "moon", "wave", "flame", "storm", "cloud", "river",
	"mountain", "forest", "ocean", "desert", "meadow", "canyon", "glacier", "aurora",
	"comet", "nebula", "phoenix", "dragon", "falcon", "leopard", "dolphin", "butterfly",
	"crystal", "prism", "beacon", "horizon", "cascade", "zenith", "adventure", "breeze",
	"cosmos", "dream", "echo", "fountain", "garden", "harmony", "island", "journey",
	"kaleidoscope", "lighthouse", "melody", "nova", "oasis", "paradise", "quest", "rainbow",
	"sanctuary", "twilight", "universe", "valley", "whisper", "zephyr", "arbor", "bloom",
	"citadel", "dawn", "ember", "frost", "glow", "haven", "iris", "jewel",
}

// simpleHash is a splitmix64-style mixer, enough to spread small seeds
// across the word lists.
func simpleHash(seed uint64) uint64 {
	x := seed
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// SeedFromSession derives the shared per-session seed from the session name
func SeedFromSession(sessionName string) uint64 {
	var seed uint64
	for i := 0; i < len(sessionName); i++ {
		seed += uint64(sessionName[i]) * uint64(i+1)
		seed = simpleHash(seed)
	}
	return seed
}

// Generate produces the name for a tab index under a session seed. The emoji
// cycles through the list by index so neighboring tabs never share one; the
// adjective and noun are hashed from index and seed together.
func Generate(tabIndex int, sessionSeed uint64) string {
	emoji := emojis[tabIndex%len(emojis)]

	seed := simpleHash(sessionSeed + uint64(tabIndex))
	adj := adjectives[simpleHash(seed)%uint64(len(adjectives))]
	noun := nouns[simpleHash(simpleHash(seed))%uint64(len(nouns))]

	return emoji + " " + adj + " " + noun
}

// Cache memoizes generated names for one session
type Cache struct {
	names map[int]string
	seed  uint64
}

func NewCache(sessionName string) *Cache {
	return &Cache{
		names: make(map[int]string),
		seed:  SeedFromSession(sessionName),
	}
}

func (c *Cache) Get(tabIndex int) string {
	if name, ok := c.names[tabIndex]; ok {
		return name
	}
	name := Generate(tabIndex, c.seed)
	c.names[tabIndex] = name
	return name
}
