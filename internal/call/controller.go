package call

import (
	"context"
	"sync"
	"time"

	"talkio/internal/events"
	"talkio/internal/media"
	talkio_errors "talkio/pkg/errors"
	"talkio/pkg/logger"
)

// State is the call session's lifecycle phase. Exactly one holds at any
// instant; there is no independent ringing/connected flag pair to drift
// apart.
type State int

const (
	StateIdle State = iota
	StateRinging
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateRinging:
		return "ringing"
	case StateConnected:
		return "connected"
	default:
		return "idle"
	}
}

// Signaler is the slice of the call channel the controller needs.
// *transport.CallChannel satisfies it.
type Signaler interface {
	IncomingCall(p events.IncomingCallPayload) error
	CallAccepted(toUserID, fromUserID string) error
	DeclineCall(toUserID, fromID, fromName string) error
	EndCall(toUserID string) error
}

// Party identifies one side of a call.
type Party struct {
	UserID string
	Name   string
	Avatar string
}

// StartParams describes an outgoing call.
type StartParams struct {
	Local     Party
	Remote    Party
	Video     bool
	IsGroup   bool
	GroupName string
}

// Controller is the single-slot call session state machine. At most one
// outgoing or incoming call is live at a time.
type Controller struct {
	media       media.Transport
	sig         Signaler
	ringTimeout time.Duration
	log         *logger.Logger

	mu        sync.Mutex
	state     State
	local     Party
	remote    Party
	video     bool
	isGroup   bool
	groupName string
	declined  bool
	banner    bool
	ringTimer *time.Timer
}

func NewController(m media.Transport, sig Signaler, ringTimeout time.Duration, log *logger.Logger) *Controller {
	return &Controller{
		media:       m,
		sig:         sig,
		ringTimeout: ringTimeout,
		log:         log,
	}
}

// Start dials an outgoing call: joins the media channel, publishes
// local tracks, notifies the callee and arms the ring timer. The callee
// has the full ring timeout to accept before the session auto-cancels.
func (c *Controller) Start(ctx context.Context, p StartParams) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return talkio_errors.ErrCallInProgress
	}
	c.state = StateRinging
	c.local = p.Local
	c.remote = p.Remote
	c.video = p.Video
	c.isGroup = p.IsGroup
	c.groupName = p.GroupName
	c.declined = false
	c.banner = false
	c.mu.Unlock()

	channel := SessionChannel(p.Local.UserID, p.Remote.UserID)
	if err := c.media.Join(ctx, channel, p.Local.UserID); err != nil {
		c.reset()
		return err
	}
	if err := c.media.Publish(ctx, p.Video); err != nil {
		_ = c.media.Leave()
		c.reset()
		return err
	}

	if err := c.sig.IncomingCall(events.IncomingCallPayload{
		FromUserID: p.Local.UserID,
		FromName:   p.Local.Name,
		FromAvatar: p.Local.Avatar,
		ToUserID:   p.Remote.UserID,
		Video:      p.Video,
		IsGroup:    p.IsGroup,
		GroupName:  p.GroupName,
	}); err != nil {
		_ = c.media.Leave()
		c.reset()
		return err
	}

	c.mu.Lock()
	if c.state == StateRinging {
		c.ringTimer = time.AfterFunc(c.ringTimeout, c.onRingTimeout)
	}
	c.mu.Unlock()

	c.log.Infof("call: ringing %s on channel %s", p.Remote.UserID, channel)
	return nil
}

// AcceptIncoming answers a call the prompt surfaced: joins the caller's
// media channel, publishes, acknowledges over signaling and lands in
// Connected. Driven by Prompt.Accept.
func (c *Controller) AcceptIncoming(ctx context.Context, local Party, caller Party, video bool) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return talkio_errors.ErrCallInProgress
	}
	c.state = StateRinging
	c.local = local
	c.remote = caller
	c.video = video
	c.declined = false
	c.banner = false
	c.mu.Unlock()

	// Same derivation the caller used, so both sides share one room.
	channel := SessionChannel(caller.UserID, local.UserID)
	if err := c.media.Join(ctx, channel, local.UserID); err != nil {
		c.reset()
		return err
	}
	if err := c.media.Publish(ctx, video); err != nil {
		_ = c.media.Leave()
		c.reset()
		return err
	}
	if err := c.sig.CallAccepted(caller.UserID, local.UserID); err != nil {
		_ = c.media.Leave()
		c.reset()
		return err
	}

	c.markConnected()
	c.log.Infof("call: accepted from %s on channel %s", caller.UserID, channel)
	return nil
}

// HandleAccepted is the caller-side reaction to the callee's accept
// acknowledgement.
func (c *Controller) HandleAccepted() {
	c.mu.Lock()
	if c.state != StateRinging {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.markConnected()
}

// markConnected transitions to Connected and cancels the ring timer
// unconditionally. Once connected, a late timer cannot end the call.
func (c *Controller) markConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateConnected
	if c.ringTimer != nil {
		c.ringTimer.Stop()
		c.ringTimer = nil
	}
}

// Hangup ends the call locally and notifies the remote party.
func (c *Controller) Hangup(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return talkio_errors.ErrNoActiveCall
	}
	remote := c.remote
	c.mu.Unlock()

	if err := c.sig.EndCall(remote.UserID); err != nil {
		c.log.Errorf("call: end signal failed: %v", err)
	}
	c.end(false)
	return nil
}

// HandleDeclined reacts to the remote party declining: the session ends
// and the declined banner is shown until Close.
func (c *Controller) HandleDeclined(fromName string) {
	c.log.Infof("call: declined by %s", fromName)
	c.end(true)
}

// HandleEnded reacts to a server-pushed call end.
func (c *Controller) HandleEnded() {
	c.end(false)
}

// Close dismisses the post-call banner without touching anything else.
func (c *Controller) Close() {
	c.mu.Lock()
	c.banner = false
	c.declined = false
	c.mu.Unlock()
}

// onRingTimeout fires when the callee has not connected in time. By the
// time it runs the session may already be connected or over; both cases
// are no-ops.
func (c *Controller) onRingTimeout() {
	c.mu.Lock()
	if c.state != StateRinging {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.log.Infof("call: ring timeout, cancelling")
	c.end(false)
}

// end tears down media and clears every session field.
func (c *Controller) end(declined bool) {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	if c.ringTimer != nil {
		c.ringTimer.Stop()
		c.ringTimer = nil
	}
	c.state = StateIdle
	c.local = Party{}
	c.remote = Party{}
	c.video = false
	c.isGroup = false
	c.groupName = ""
	c.declined = declined
	c.banner = true
	if err := c.media.Leave(); err != nil {
		c.log.Errorf("call: media leave failed: %v", err)
	}
	c.mu.Unlock()
}

// reset rolls back a failed start without raising the banner.
func (c *Controller) reset() {
	c.mu.Lock()
	if c.ringTimer != nil {
		c.ringTimer.Stop()
		c.ringTimer = nil
	}
	c.state = StateIdle
	c.local = Party{}
	c.remote = Party{}
	c.video = false
	c.isGroup = false
	c.groupName = ""
	c.mu.Unlock()
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remote returns the remote party of the live session.
func (c *Controller) Remote() Party {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

// Declined reports whether the last session ended in a decline.
func (c *Controller) Declined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.declined
}

// BannerVisible reports whether the post-call summary is showing.
func (c *Controller) BannerVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}
