package slash

import (
	"github.com/bwmarrin/discordgo"
)

// Wire limits for message composition.
const (
	maxEmbeds     = 10
	maxActionRows = 5
	maxRowButtons = 5
)

// truncateEmbeds silently drops embeds past the wire limit.
func truncateEmbeds(embeds []*discordgo.MessageEmbed) []*discordgo.MessageEmbed {
	if len(embeds) > maxEmbeds {
		return embeds[:maxEmbeds]
	}
	return embeds
}

// normalizeComponents enforces the action-row limits: at most five rows,
// and within a row at most five buttons or exactly one select menu. Excess
// children are dropped silently; a select menu in a row claims the row.
func normalizeComponents(components []discordgo.MessageComponent) []discordgo.MessageComponent {
	if len(components) > maxActionRows {
		components = components[:maxActionRows]
	}
	out := make([]discordgo.MessageComponent, 0, len(components))
	for _, comp := range components {
		row, ok := comp.(discordgo.ActionsRow)
		if !ok {
			out = append(out, comp)
			continue
		}
		out = append(out, normalizeRow(row))
	}
	return out
}

func normalizeRow(row discordgo.ActionsRow) discordgo.ActionsRow {
	for _, child := range row.Components {
		if isSelect(child) {
			return discordgo.ActionsRow{Components: []discordgo.MessageComponent{firstSelect(row.Components)}}
		}
	}
	if len(row.Components) > maxRowButtons {
		row.Components = row.Components[:maxRowButtons]
	}
	return row
}

func isSelect(comp discordgo.MessageComponent) bool {
	switch comp.(type) {
	case discordgo.SelectMenu, *discordgo.SelectMenu:
		return true
	}
	return false
}

func firstSelect(components []discordgo.MessageComponent) discordgo.MessageComponent {
	for _, comp := range components {
		if isSelect(comp) {
			return comp
		}
	}
	return nil
}

// Row wraps components in an action row, applying the row limits.
func Row(components ...discordgo.MessageComponent) discordgo.ActionsRow {
	return normalizeRow(discordgo.ActionsRow{Components: components})
}

// Button builds a clickable button carrying a custom ID for callback
// matching.
func Button(label, customID string, style discordgo.ButtonStyle) discordgo.Button {
	return discordgo.Button{Label: label, CustomID: customID, Style: style}
}

// LinkButton builds a URL button. Link buttons carry no custom ID and never
// produce interactions.
func LinkButton(label, url string) discordgo.Button {
	return discordgo.Button{Label: label, URL: url, Style: discordgo.LinkButton}
}

// Select builds a single-select menu.
func Select(customID, placeholder string, options ...discordgo.SelectMenuOption) discordgo.SelectMenu {
	return discordgo.SelectMenu{CustomID: customID, Placeholder: placeholder, Options: options}
}
