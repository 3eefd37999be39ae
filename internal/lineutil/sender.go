package lineutil

import (
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Client wraps the Messaging API for the two calls the bot makes:
// replying to an event and showing the typing indicator.
type Client struct {
	api *messaging_api.MessagingApiAPI
}

// NewClient creates a Messaging API client from the channel access token.
func NewClient(channelToken string) (*Client, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &Client{api: api}, nil
}

// ReplyText replies to replyToken with a single text message, attaching
// quick reply buttons when labels are given.
func (c *Client) ReplyText(replyToken, text string, quickReplies []string) error {
	msg := NewTextMessageWithQuickReply(text, quickReplies)
	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{msg},
	})
	return err
}

// ShowLoading shows the loading animation in a chat.
// LINE requires loadingSeconds between 5 and 60 in multiples of 5.
func (c *Client) ShowLoading(chatID string, seconds int32) error {
	if seconds < 5 {
		seconds = 5
	} else if seconds > 60 {
		seconds = 60
	}
	seconds -= seconds % 5

	_, err := c.api.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: seconds,
	})
	return err
}
