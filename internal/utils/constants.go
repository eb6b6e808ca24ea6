package utils

const (
	// Colors
	ColorDark   = 0x2f3136
	ColorGreen  = 0x00FF00
	ColorRed    = 0xFF0000
	ColorBlue   = 0x5865F2
	ColorOrange = 0xFFA500
	ColorGold   = 0xFFD700
)
