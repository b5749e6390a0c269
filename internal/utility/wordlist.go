package utility

// wordlist feeds GeneratePassphrase. Short, unambiguous words only.
var wordlist = []string{
	"acorn", "amber", "anchor", "apple", "arrow", "aspen", "atlas", "azure",
	"badge", "bagel", "basil", "beach", "birch", "bison", "blaze", "bloom",
	"brass", "brick", "brook", "cabin", "candle", "canoe", "cedar", "chalk",
	"cherry", "cliff", "cloud", "clover", "cobalt", "comet", "coral", "crane",
	"creek", "crystal", "daisy", "delta", "denim", "drift", "eagle", "ember",
	"fable", "falcon", "fern", "flint", "forest", "fossil", "frost", "garnet",
	"gecko", "ginger", "glade", "granite", "grove", "harbor", "hazel", "heron",
	"ivory", "jasper", "juniper", "kayak", "lagoon", "lantern", "lemon", "lilac",
	"lotus", "maple", "marble", "meadow", "mesa", "mint", "moss", "nectar",
	"nimbus", "oasis", "ocean", "olive", "onyx", "opal", "orbit", "otter",
	"pebble", "pecan", "pine", "plume", "pond", "poppy", "prairie", "quartz",
	"raven", "reef", "ridge", "river", "robin", "rustic", "saffron", "sage",
	"shore", "sierra", "slate", "sparrow", "spruce", "stone", "summit", "sunset",
	"thistle", "tiger", "topaz", "trail", "tulip", "tundra", "velvet", "violet",
	"walnut", "willow", "winter", "wren", "yarrow", "zephyr",
}
