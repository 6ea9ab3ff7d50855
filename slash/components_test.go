package slash

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buttons(n int) []discordgo.MessageComponent {
	var out []discordgo.MessageComponent
	for i := 0; i < n; i++ {
		out = append(out, Button(fmt.Sprintf("b%d", i), fmt.Sprintf("btn:%d", i), discordgo.PrimaryButton))
	}
	return out
}

func TestNormalizeComponentsRowCount(t *testing.T) {
	var rows []discordgo.MessageComponent
	for i := 0; i < 7; i++ {
		rows = append(rows, discordgo.ActionsRow{Components: buttons(1)})
	}
	assert.Len(t, normalizeComponents(rows), 5)

	assert.Len(t, normalizeComponents(rows[:5]), 5)
	assert.Len(t, normalizeComponents(rows[:3]), 3)
}

func TestNormalizeRowButtonCount(t *testing.T) {
	row := normalizeComponents([]discordgo.MessageComponent{
		discordgo.ActionsRow{Components: buttons(8)},
	})
	require.Len(t, row, 1)
	assert.Len(t, row[0].(discordgo.ActionsRow).Components, 5)
}

func TestNormalizeRowSelectClaimsRow(t *testing.T) {
	mixed := append(buttons(3), Select("pick", "choose one"))
	row := normalizeComponents([]discordgo.MessageComponent{
		discordgo.ActionsRow{Components: mixed},
	})
	require.Len(t, row, 1)
	children := row[0].(discordgo.ActionsRow).Components
	require.Len(t, children, 1)
	sel, ok := children[0].(discordgo.SelectMenu)
	require.True(t, ok)
	assert.Equal(t, "pick", sel.CustomID)
}

func TestRowHelper(t *testing.T) {
	row := Row(buttons(2)...)
	assert.Len(t, row.Components, 2)
}

func TestLinkButtonHasNoCustomID(t *testing.T) {
	b := LinkButton("docs", "https://example.com")
	assert.Empty(t, b.CustomID)
	assert.Equal(t, discordgo.LinkButton, b.Style)
}
