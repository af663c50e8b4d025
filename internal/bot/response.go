package bot

import (
	"github.com/bwmarrin/discordgo"
)

type ResponseString struct {
	string
}
type ResponseEmbed struct {
	discordgo.MessageEmbed
}

// Shown only to the user who ran the command
type ResponseError struct {
	string
}

type Response interface {
	apply(data *discordgo.InteractionResponseData)
}

func (response ResponseString) apply(data *discordgo.InteractionResponseData) {
	if data.Content != "" {
		data.Content += "\n"
	}
	data.Content += response.string
}

func (response ResponseEmbed) apply(data *discordgo.InteractionResponseData) {
	embed := response.MessageEmbed
	data.Embeds = append(data.Embeds, &embed)
}

func (response ResponseError) apply(data *discordgo.InteractionResponseData) {
	data.Flags |= discordgo.MessageFlagsEphemeral
	data.Embeds = append(data.Embeds, &discordgo.MessageEmbed{
		Title:       "Error",
		Description: response.string,
		Color:       colorError,
	})
}

// Merge all the responses into a single interaction reply
func interactionData(responses []Response) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{}
	for _, response := range responses {
		response.apply(data)
	}
	return data
}
