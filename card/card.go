// Package card renders scraped title fields as a Discord embed.
package card

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/use-agent/filmcard/models"
)

// Color is the IMDb brand yellow.
const Color = 0xF5C518

const (
	zeroWidthSpace = "\u200b"
	nbsp           = "\u00a0"

	// minDurationWidth is the rune width durations are left-padded to.
	minDurationWidth = 7
)

// Rating and duration labels. The combined label puts five spaces between
// the two so the values line up under them.
const (
	ratingLabel   = ":star: Rating"
	durationLabel = ":hourglass: Duration"
)

// valueIndent pushes field values under the emoji of their label.
var valueIndent = strings.Repeat(zeroWidthSpace+" ", 4)

// Build assembles the summary card for a title page.
func Build(fields models.Fields, url string, author models.Author) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fields.Title,
		URL:   url,
		Color: Color,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    author.DisplayName(),
			IconURL: AvatarURL(author),
		},
	}

	// Discord rejects a thumbnail with an empty URL.
	if fields.ImageURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: fields.ImageURL}
	}
	if len(fields.Genres) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  strings.Join(fields.Genres, " | "),
			Value: zeroWidthSpace,
		})
	}
	if fields.Description != "" {
		embed.Description = fields.Description
	}
	if f := ratingDurationField(fields.Rating, fields.Duration); f != nil {
		embed.Fields = append(embed.Fields, f)
	}
	return embed
}

func ratingDurationField(rating, duration string) *discordgo.MessageEmbedField {
	switch {
	case rating != "" && duration != "":
		return &discordgo.MessageEmbedField{
			Name: ratingLabel + " " + strings.Repeat(" ", 5) + " " + durationLabel,
			Value: valueIndent + " **" + rating + "**/10" +
				strings.Repeat(nbsp, 14) + " " + AddLeftSpaces(duration),
			Inline: true,
		}
	case rating != "":
		return &discordgo.MessageEmbedField{
			Name:   ratingLabel,
			Value:  valueIndent + " **" + rating + "**/10",
			Inline: true,
		}
	case duration != "":
		return &discordgo.MessageEmbedField{
			Name:   durationLabel,
			Value:  valueIndent + " " + AddLeftSpaces(duration),
			Inline: true,
		}
	}
	return nil
}

// AddLeftSpaces left-pads s with non-breaking spaces to a width of seven
// runes. Longer strings are returned unchanged.
func AddLeftSpaces(s string) string {
	n := minDurationWidth - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	return strings.Repeat(nbsp, n) + s
}

// AvatarURL is the CDN location of the author's avatar image, or "" when
// the author has no custom avatar.
func AvatarURL(author models.Author) string {
	if author.ID == "" || author.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", author.ID, author.Avatar)
}
