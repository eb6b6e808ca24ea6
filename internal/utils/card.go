package utils

import (
	"bytes"
	"fmt"
	"image/color"

	"discord-invite-tracker/internal/invites"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	cardWidth   = 640
	cardHeader  = 72
	cardRow     = 46
	cardPadding = 24
)

// RenderLeaderboardCard draws the top-inviter card attached to the
// leaderboard reply.
func RenderLeaderboardCard(entries []invites.LeaderboardEntry) ([]byte, error) {
	height := cardHeader + cardRow*len(entries) + cardPadding
	dc := gg.NewContext(cardWidth, height)

	// Background gradient
	grad := gg.NewLinearGradient(0, 0, cardWidth, float64(height))
	grad.AddColorStop(0, color.RGBA{0x2b, 0x2d, 0x31, 255})
	grad.AddColorStop(1, color.RGBA{0x1e, 0x1f, 0x22, 255})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, cardWidth, float64(height))
	dc.Fill()

	fnt, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}

	titleFace := truetype.NewFace(fnt, &truetype.Options{Size: 30})
	rowFace := truetype.NewFace(fnt, &truetype.Options{Size: 20})

	dc.SetFontFace(titleFace)
	dc.SetColor(color.RGBA{0xFF, 0xD7, 0x00, 255})
	dc.DrawStringAnchored("Invite Leaderboard", cardWidth/2, cardHeader/2, 0.5, 0.5)

	dc.SetFontFace(rowFace)
	for idx, entry := range entries {
		y := float64(cardHeader + cardRow*idx + cardRow/2)

		// Stripe alternate rows for readability
		if idx%2 == 0 {
			dc.SetColor(color.RGBA{255, 255, 255, 10})
			dc.DrawRectangle(cardPadding/2, float64(cardHeader+cardRow*idx), cardWidth-cardPadding, cardRow)
			dc.Fill()
		}

		dc.SetColor(rankColor(idx + 1))
		dc.DrawStringAnchored(fmt.Sprintf("#%d", idx+1), cardPadding+16, y, 0.5, 0.5)

		dc.SetColor(color.RGBA{0xDB, 0xDE, 0xE1, 255})
		dc.DrawStringAnchored(truncate(entry.DisplayName, 24), cardPadding+64, y, 0, 0.5)

		dc.SetColor(color.RGBA{0x80, 0xC0, 0xFF, 255})
		dc.DrawStringAnchored(fmt.Sprintf("%d invites", entry.SuccessfulInvites), cardWidth-cardPadding, y, 1, 0.5)
	}

	buf := new(bytes.Buffer)
	if err := dc.EncodePNG(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rankColor(rank int) color.Color {
	switch rank {
	case 1:
		return color.RGBA{0xFF, 0xD7, 0x00, 255}
	case 2:
		return color.RGBA{0xC0, 0xC0, 0xC0, 255}
	case 3:
		return color.RGBA{0xCD, 0x7F, 0x32, 255}
	default:
		return color.RGBA{0x96, 0x98, 0x9D, 255}
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
