package relay

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	// HeaderText opens every notification
	HeaderText = "New contact form submission!"

	// EmbedTitle and EmbedColor style the submission embed
	EmbedTitle = "Contact Form Submission"
	EmbedColor = 5814783

	// MaxMessageLength caps the message field, in characters
	MaxMessageLength = 1000

	footerTimeLayout = "2006-01-02 15:04:05 UTC"
)

// BuildPayload assembles the Discord webhook body for sub.
// When mentionID is set the header pings that user.
func BuildPayload(sub *Submission, mentionID string, now time.Time) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{
		Content: HeaderText,
		Embeds: []*discordgo.MessageEmbed{
			{
				Title: EmbedTitle,
				Color: EmbedColor,
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Name", Value: sub.Name, Inline: true},
					{Name: "Email", Value: sub.Email, Inline: true},
					{Name: "IP Address", Value: sub.IP, Inline: true},
					{Name: "Message", Value: truncate(sub.Message, MaxMessageLength)},
				},
				Footer: &discordgo.MessageEmbedFooter{
					Text: "Submitted at " + now.UTC().Format(footerTimeLayout),
				},
			},
		},
	}

	if mentionID != "" {
		params.Content = "<@" + mentionID + "> " + HeaderText
		params.AllowedMentions = &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
			Users: []string{mentionID},
		}
	}

	return params
}

// truncate keeps the first n runes of s
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
