package call

import (
	"context"
	"sync"

	"talkio/internal/events"
	talkio_errors "talkio/pkg/errors"
	"talkio/pkg/logger"
)

// Prompt is the incoming-call notifier: a small visible/hidden state
// machine independent of the active call session. It shows the caller's
// metadata until the user accepts or declines, or until the server
// reports the call over.
type Prompt struct {
	ctrl *Controller
	sig  Signaler
	log  *logger.Logger

	mu      sync.Mutex
	visible bool
	payload events.IncomingCallPayload
	local   Party
}

func NewPrompt(ctrl *Controller, sig Signaler, log *logger.Logger) *Prompt {
	return &Prompt{ctrl: ctrl, sig: sig, log: log}
}

// SetLocalUser fixes the identity used for accept/decline signaling.
// Called once per session, after the access token is parsed.
func (p *Prompt) SetLocalUser(user Party) {
	p.mu.Lock()
	p.local = user
	p.mu.Unlock()
}

// Show surfaces the prompt for an incoming call. Addressed-to-me
// filtering happens at the transport boundary, not here.
func (p *Prompt) Show(payload events.IncomingCallPayload) {
	p.mu.Lock()
	p.visible = true
	p.payload = payload
	p.mu.Unlock()
	p.log.Infof("call: incoming from %s (video=%v)", payload.FromUserID, payload.Video)
}

// Accept answers the call: hides the prompt and drives the controller
// into Connected in the same step, so the two state holders cannot
// drift. The media channel name is derived the same way the caller
// derived it. If the join fails the prompt comes back, so the call
// stays answerable until the ring times out.
func (p *Prompt) Accept(ctx context.Context) error {
	p.mu.Lock()
	if !p.visible {
		p.mu.Unlock()
		return talkio_errors.ErrNoActiveCall
	}
	payload := p.payload
	local := p.local
	p.visible = false
	p.mu.Unlock()

	caller := Party{UserID: payload.FromUserID, Name: payload.FromName, Avatar: payload.FromAvatar}
	if err := p.ctrl.AcceptIncoming(ctx, local, caller, payload.Video); err != nil {
		p.mu.Lock()
		// Re-show unless the call ended or a newer one arrived meanwhile.
		if !p.visible && p.payload == payload {
			p.visible = true
		}
		p.mu.Unlock()
		return err
	}
	return nil
}

// Decline refuses the call, telling the caller who declined.
func (p *Prompt) Decline() error {
	p.mu.Lock()
	if !p.visible {
		p.mu.Unlock()
		return talkio_errors.ErrNoActiveCall
	}
	payload := p.payload
	local := p.local
	p.visible = false
	p.mu.Unlock()

	return p.sig.DeclineCall(payload.FromUserID, local.UserID, local.Name)
}

// HandleEnded hides the prompt when the server reports the call over,
// whether or not it was showing.
func (p *Prompt) HandleEnded() {
	p.mu.Lock()
	p.visible = false
	p.payload = events.IncomingCallPayload{}
	p.mu.Unlock()
}

// Visible reports whether the prompt is currently showing.
func (p *Prompt) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Caller returns the pending caller metadata while the prompt shows.
func (p *Prompt) Caller() events.IncomingCallPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payload
}
