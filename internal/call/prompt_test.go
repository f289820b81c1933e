package call_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"talkio/internal/call"
	"talkio/internal/events"
	"talkio/pkg/logger"
)

func newPrompt() (*call.Prompt, *call.Controller, *fakeMedia, *fakeSignal) {
	m := &fakeMedia{}
	s := &fakeSignal{}
	ctrl := call.NewController(m, s, time.Minute, logger.New(logger.DevelopmentMode))
	p := call.NewPrompt(ctrl, s, logger.New(logger.DevelopmentMode))
	p.SetLocalUser(bob)
	return p, ctrl, m, s
}

func incomingFromAlice() events.IncomingCallPayload {
	return events.IncomingCallPayload{
		FromUserID: alice.UserID,
		FromName:   alice.Name,
		ToUserID:   bob.UserID,
		Video:      true,
	}
}

func TestPrompt_ShowThenAccept(t *testing.T) {
	p, ctrl, m, s := newPrompt()

	p.Show(incomingFromAlice())
	assert.True(t, p.Visible())
	assert.Equal(t, alice.UserID, p.Caller().FromUserID)

	// Accept drives both state holders in one step: the prompt hides
	// and the controller lands in Connected.
	assert.NoError(t, p.Accept(context.Background()))
	assert.False(t, p.Visible())
	assert.Equal(t, call.StateConnected, ctrl.State())
	assert.Equal(t, call.SessionChannel(alice.UserID, bob.UserID), m.channel)
	assert.Len(t, s.accepted, 1)

	// Accept on a hidden prompt is refused.
	assert.Error(t, p.Accept(context.Background()))
}

func TestPrompt_AcceptFailureKeepsPromptVisible(t *testing.T) {
	p, ctrl, m, _ := newPrompt()
	m.failJoin = assert.AnError

	p.Show(incomingFromAlice())
	assert.Error(t, p.Accept(context.Background()))

	// The call is still answerable: the prompt came back and the
	// controller never left Idle.
	assert.True(t, p.Visible())
	assert.Equal(t, alice.UserID, p.Caller().FromUserID)
	assert.Equal(t, call.StateIdle, ctrl.State())

	// Once the media transport recovers the same prompt accepts.
	m.failJoin = nil
	assert.NoError(t, p.Accept(context.Background()))
	assert.False(t, p.Visible())
	assert.Equal(t, call.StateConnected, ctrl.State())
}

func TestPrompt_Decline(t *testing.T) {
	p, ctrl, m, s := newPrompt()

	p.Show(incomingFromAlice())
	assert.NoError(t, p.Decline())
	assert.False(t, p.Visible())
	assert.Equal(t, call.StateIdle, ctrl.State())
	assert.False(t, m.Connected())

	assert.Len(t, s.declined, 1)
	assert.Equal(t, alice.UserID, s.declined[0].ToUserID)
	assert.Equal(t, bob.UserID, s.declined[0].FromID)
	assert.Equal(t, bob.Name, s.declined[0].FromName)

	assert.Error(t, p.Decline())
}

func TestPrompt_HiddenOnRemoteEnd(t *testing.T) {
	p, _, _, _ := newPrompt()

	p.Show(incomingFromAlice())
	p.HandleEnded()
	assert.False(t, p.Visible())
	assert.Empty(t, p.Caller().FromUserID)

	// Ending with no prompt showing is harmless.
	p.HandleEnded()
	assert.False(t, p.Visible())
}
