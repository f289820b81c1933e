package transport

import (
	"talkio/internal/events"
	"talkio/pkg/logger"
)

// CallChannel is the call-signaling socket namespace.
type CallChannel struct {
	*Channel
}

func NewCallChannel(url string, log *logger.Logger) *CallChannel {
	return &CallChannel{Channel: NewChannel(url, log)}
}

// Join registers the local user on the signaling namespace. Must be
// emitted once after every connect.
func (c *CallChannel) Join(userID string) error {
	return c.Emit(events.EventCallJoin, events.CallJoinPayload{UserID: userID})
}

func (c *CallChannel) IncomingCall(p events.IncomingCallPayload) error {
	return c.Emit(events.EventIncomingCall, p)
}

func (c *CallChannel) CallAccepted(toUserID, fromUserID string) error {
	return c.Emit(events.EventCallAccepted, events.CallAcceptedPayload{
		ToUserID:   toUserID,
		FromUserID: fromUserID,
	})
}

func (c *CallChannel) DeclineCall(toUserID, fromID, fromName string) error {
	return c.Emit(events.EventDeclineCall, events.DeclineCallPayload{
		ToUserID: toUserID,
		FromID:   fromID,
		FromName: fromName,
	})
}

func (c *CallChannel) EndCall(toUserID string) error {
	return c.Emit(events.EventEndCall, events.EndCallPayload{ToUserID: toUserID})
}
