package model

// consoleAbbrev maps upstream console names to the short labels used in
// embeds. Unknown consoles pass through unchanged.
var consoleAbbrev = map[string]string{
	"Game Boy":                            "GB",
	"Game Boy Color":                      "GBC",
	"Game Boy Advance":                    "GBA",
	"Nintendo Entertainment System":       "NES",
	"Super Nintendo Entertainment System": "SNES",
	"Nintendo 64":                         "N64",
	"Nintendo DS":                         "NDS",
	"GameCube":                            "GC",
	"PlayStation":                         "PS1",
	"PlayStation 2":                       "PS2",
	"PlayStation Portable":                "PSP",
	"Mega Drive":                          "MD",
	"Master System":                       "SMS",
	"Game Gear":                           "GG",
	"Sega Saturn":                         "Saturn",
	"Sega Dreamcast":                      "DC",
	"Atari 2600":                          "2600",
	"Atari Lynx":                          "Lynx",
	"PC Engine":                           "PCE",
	"Neo Geo Pocket":                      "NGP",
	"WonderSwan":                          "WS",
	"Arcade":                              "ARC",
}

func ConsoleAbbrev(name string) string {
	if short, ok := consoleAbbrev[name]; ok {
		return short
	}
	return name
}
