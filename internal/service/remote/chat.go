package remote

import (
	"context"
	"log"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-tavern/portal/internal/model/speech"
)

// Chat sends the full history and returns the assistant reply.
// Any non-success status is reported uniformly as ErrChatFailed.
func (c *Client) Chat(ctx context.Context, messages []*schema.Message) (string, error) {
	resp, err := c.postJSON(ctx, c.chatURL, speech.ChatRequest{Messages: messages})
	if err != nil {
		log.Printf("[remote] chat request error: %v", err)
		return "", &Error{Op: "chat", Message: err.Error(), Err: ErrRequest}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", &Error{Op: "chat", Status: resp.StatusCode, Message: err.Error(), Err: ErrBadResponse}
	}

	if !isSuccess(resp.StatusCode) {
		log.Printf("[remote] chat failed with status=%d", resp.StatusCode)
		return "", &Error{Op: "chat", Status: resp.StatusCode, Message: "Failed to get response", Err: ErrChatFailed}
	}

	var reply speech.ChatResponse
	if err := codec.Unmarshal(body, &reply); err != nil {
		return "", &Error{Op: "chat", Status: resp.StatusCode, Message: "invalid chat response: " + err.Error(), Err: ErrBadResponse}
	}

	return reply.Content, nil
}
