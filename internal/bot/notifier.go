package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"leaguebot/internal/common"
	"leaguebot/internal/league"
	"leaguebot/internal/reminder"

	"github.com/bwmarrin/discordgo"
)

// Part of *discordgo.Session used to send direct messages
type dmSession interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Sends notices to users through Discord direct messages,
// keeping under the rate limits of the API
type DMNotifier struct {
	session dmSession
	limiter *common.RateLimiter
}

func CreateDMNotifier(session dmSession, limiter *common.RateLimiter) *DMNotifier {
	return &DMNotifier{session: session, limiter: limiter}
}

func (notifier *DMNotifier) SendDirectMessage(ctx context.Context, user league.UserId, notice league.Notice) error {

	if err := notifier.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: waiting for rate limiter: %w", reminder.ErrNotSent, err)
	}

	channel, err := notifier.session.UserChannelCreate(string(user), discordgo.WithContext(ctx))
	if err != nil {
		notifier.checkRateLimit(err)
		return fmt.Errorf("opening direct message channel: %w", err)
	}

	if _, err := notifier.session.ChannelMessageSendEmbed(channel.ID, NoticeEmbed(notice), discordgo.WithContext(ctx)); err != nil {
		notifier.checkRateLimit(err)
		return fmt.Errorf("sending direct message: %w", err)
	}
	return nil
}

// Pause the limiter when Discord answered with 429
func (notifier *DMNotifier) checkRateLimit(err error) {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return
	}
	if restErr.Response.StatusCode != http.StatusTooManyRequests {
		return
	}
	retryAfter := time.Duration(0)
	if header := restErr.Response.Header.Get("Retry-After"); header != "" {
		if seconds, parseErr := strconv.ParseFloat(header, 64); parseErr == nil {
			retryAfter = time.Duration(seconds * float64(time.Second))
		}
	}
	notifier.limiter.ReceivedRateLimit(retryAfter)
}
