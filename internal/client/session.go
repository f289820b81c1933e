// Package client ties the conversation store, the two realtime
// channels, the call state machines and the local cache into one
// session-scoped object. Nothing here is a process-wide singleton;
// a Session owns its transports and tears them down on Disconnect.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"talkio/config"
	"talkio/internal/api"
	"talkio/internal/cache"
	"talkio/internal/call"
	"talkio/internal/domain"
	"talkio/internal/events"
	"talkio/internal/media"
	appstorage "talkio/internal/storage"
	"talkio/internal/store"
	"talkio/internal/transport"
	talkio_errors "talkio/pkg/errors"
	"talkio/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const cacheTimeout = 5 * time.Second

// Session is the client core for one logged-in user.
type Session struct {
	cfg *config.Config
	log *logger.Logger
	id  string

	user   domain.User
	store  *store.ConversationStore
	chat   *transport.ChatChannel
	callCh *transport.CallChannel
	ctrl   *call.Controller
	prompt *call.Prompt
	rest   *api.Client
	hist   *cache.Cache       // optional local history mirror
	blobs  *appstorage.Client // optional attachment store

	mu        sync.Mutex
	connected bool
}

// NewSession builds a disconnected session from configuration.
// The history cache and attachment store are optional and may be nil.
func NewSession(cfg *config.Config, log *logger.Logger, hist *cache.Cache, blobs *appstorage.Client) *Session {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	chatCh := transport.NewChatChannel(cfg.ChatSocketURL, log)
	callCh := transport.NewCallChannel(cfg.CallSocketURL, log)
	mediaT := media.NewPionTransport(cfg.StunURL, log)
	ctrl := call.NewController(mediaT, callCh, cfg.RingTimeout(), log)

	return &Session{
		cfg:    cfg,
		log:    log,
		id:     uuid.NewString(),
		store:  store.NewConversationStore(log),
		chat:   chatCh,
		callCh: callCh,
		ctrl:   ctrl,
		prompt: call.NewPrompt(ctrl, callCh, log),
		rest:   api.NewClient(cfg.APIBaseURL, cfg.AccessToken, log),
		hist:   hist,
		blobs:  blobs,
	}
}

// Connect parses the access token, dials both realtime channels,
// announces the identity on each and performs the initial full fetch.
// Without a user identity the channels are never dialed.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return talkio_errors.ErrAlreadyConnected
	}
	s.mu.Unlock()

	user, err := identityFromToken(s.cfg.AccessToken)
	if err != nil {
		return err
	}
	s.user = user
	s.prompt.SetLocalUser(call.Party{UserID: user.ID, Name: user.Name, Avatar: user.Avatar})

	// Tag the connect flow so every log line carries the session and
	// user identity.
	ctx = context.WithValue(ctx, logger.SessionIdKey, s.id)
	ctx = context.WithValue(ctx, logger.UserIdKey, user.ID)

	s.warmFromCache(ctx)

	s.registerChatHandlers()
	if err := s.chat.Connect(ctx); err != nil {
		return err
	}
	if err := s.chat.Setup(user.ID); err != nil {
		s.chat.Disconnect()
		return err
	}

	s.registerCallHandlers()
	if err := s.callCh.Connect(ctx); err != nil {
		s.chat.Disconnect()
		return err
	}
	if err := s.callCh.Join(user.ID); err != nil {
		s.chat.Disconnect()
		s.callCh.Disconnect()
		return err
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	s.log.InfoCtx(ctx, "session connected")

	s.loadAll(ctx)
	return nil
}

// Disconnect ends any live call, closes both channels and drops all
// event handlers with them.
func (s *Session) Disconnect() {
	if s.ctrl.State() != call.StateIdle {
		_ = s.ctrl.Hangup(context.Background())
	}
	s.chat.Disconnect()
	s.callCh.Disconnect()
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

// loadAll performs the full conversation fetch. A failure only raises
// the load-error flag; existing state is kept and no retry is made.
func (s *Session) loadAll(ctx context.Context) {
	convs, err := s.rest.ListConversations(ctx, s.user.ID)
	if err != nil {
		s.log.ErrorCtx(ctx, "conversation fetch failed", zap.Error(err))
		s.store.SetLoadError()
		return
	}
	s.store.ReplaceAll(convs, s.user.ID)
	for _, c := range convs {
		_ = s.chat.JoinRoom(c.ID)
	}
	s.persistAll()
}

// warmFromCache pre-populates the store from the local mirror so a
// cold start has something to show before the first fetch.
func (s *Session) warmFromCache(ctx context.Context) {
	if s.hist == nil {
		return
	}
	convs, err := s.hist.LoadConversations(ctx)
	if err != nil {
		s.log.Warnf("session: cache warm failed: %v", err)
		return
	}
	if len(convs) > 0 {
		s.store.ReplaceAll(convs, s.user.ID)
	}
}

func (s *Session) persistAll() {
	if s.hist == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := s.hist.SaveConversations(ctx, s.store.List()); err != nil {
		s.log.Warnf("session: cache write failed: %v", err)
	}
}

// Store exposes the conversation mirror for the presentation layer.
func (s *Session) Store() *store.ConversationStore { return s.store }

// Call exposes the call session controller.
func (s *Session) Call() *call.Controller { return s.ctrl }

// Prompt exposes the incoming-call notifier.
func (s *Session) Prompt() *call.Prompt { return s.prompt }

// User returns the local identity decoded from the access token.
func (s *Session) User() domain.User { return s.user }

// ---- chat actions -------------------------------------------------------

// SendMessage composes and sends a message. The message is applied
// locally first and carries a client-assigned ID, so the server echo
// de-duplicates on the ID instead of on who initiated the action.
func (s *Session) SendMessage(ctx context.Context, conversationID, content string, typ domain.MessageType, fileName, mimeType string, data []byte) (*domain.Message, error) {
	if s.user.ID == "" {
		return nil, talkio_errors.ErrNoIdentity
	}
	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       s.user.ID,
		SenderName:     s.user.Name,
		SenderAvatar:   s.user.Avatar,
		Content:        content,
		Type:           typ,
		FileName:       fileName,
		MimeType:       mimeType,
		Timestamp:      time.Now(),
	}
	if data != nil {
		if err := appstorage.AttachmentContent(ctx, s.blobs, msg, data); err != nil {
			return nil, err
		}
	}

	s.store.ApplyIncomingMessage(msg, s.user.ID)
	s.saveMessage(msg)
	if err := s.chat.SendMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// RevokeMessage redacts a message for everyone, locally first.
func (s *Session) RevokeMessage(messageID, conversationID string) error {
	s.store.ApplyMessageRevoked(messageID, conversationID)
	if s.hist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		_ = s.hist.RevokeMessage(ctx, messageID)
	}
	return s.chat.RevokeMessage(messageID, s.user.ID, conversationID)
}

// DeleteMessage removes a message from history, locally first.
func (s *Session) DeleteMessage(messageID, conversationID string) error {
	s.store.ApplyMessageDeleted(messageID, conversationID)
	if s.hist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		_ = s.hist.DeleteMessage(ctx, messageID)
	}
	return s.chat.DeleteMessage(messageID, s.user.ID, conversationID)
}

// SelectConversation makes a conversation current and joins its room.
func (s *Session) SelectConversation(conversationID string) error {
	if err := s.store.Select(conversationID); err != nil {
		return err
	}
	return s.chat.JoinRoom(conversationID)
}

// ClearSelection drops the current conversation.
func (s *Session) ClearSelection() {
	s.store.ClearSelection()
}

// HideConversation soft-deletes a conversation locally.
func (s *Session) HideConversation(conversationID string) {
	s.store.MarkHidden(conversationID)
	if s.hist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		_ = s.hist.RemoveConversation(ctx, conversationID)
	}
}

// CreateGroup asks the server for a new group conversation. The
// confirmation arrives as a newConversation push.
func (s *Session) CreateGroup(name string, members []domain.Member) error {
	return s.chat.CreateGroupConversation(name, s.user.ID, members)
}

// CreatePrivate asks the server for (or looks up) a 1:1 conversation.
func (s *Session) CreatePrivate(other domain.Member) error {
	me := domain.Member{UserID: s.user.ID, Name: s.user.Name, Avatar: s.user.Avatar}
	return s.chat.CreatePrivateConversation([]domain.Member{me, other})
}

func (s *Session) AddMembers(conversationID string, members []domain.Member) error {
	return s.chat.AddMembersToGroup(conversationID, members)
}

func (s *Session) RemoveMember(conversationID, userID string) error {
	return s.chat.RemoveMember(conversationID, userID)
}

func (s *Session) TransferAdmin(conversationID, newAdminID string) error {
	return s.chat.TransferAdmin(conversationID, newAdminID)
}

func (s *Session) RenameGroup(conversationID, name string) error {
	return s.chat.UpdateGroupName(conversationID, name)
}

func (s *Session) ChangeGroupAvatar(conversationID, avatar string) error {
	return s.chat.UpdateGroupAvatar(conversationID, avatar)
}

// LeaveGroup leaves a group and drops it from the local mirror.
func (s *Session) LeaveGroup(conversationID string) error {
	if err := s.chat.LeaveGroup(conversationID, s.user.ID); err != nil {
		return err
	}
	s.store.Remove(conversationID)
	if s.hist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		_ = s.hist.RemoveConversation(ctx, conversationID)
	}
	return nil
}

// ---- call actions -------------------------------------------------------

// StartCall rings another user.
func (s *Session) StartCall(ctx context.Context, remote call.Party, video bool) error {
	return s.ctrl.Start(ctx, call.StartParams{
		Local:  call.Party{UserID: s.user.ID, Name: s.user.Name, Avatar: s.user.Avatar},
		Remote: remote,
		Video:  video,
	})
}

// AcceptCall answers the currently prompted incoming call.
func (s *Session) AcceptCall(ctx context.Context) error {
	return s.prompt.Accept(ctx)
}

// DeclineCall refuses the currently prompted incoming call.
func (s *Session) DeclineCall() error {
	return s.prompt.Decline()
}

// EndCall hangs up the live call.
func (s *Session) EndCall(ctx context.Context) error {
	return s.ctrl.Hangup(ctx)
}

// CloseCallBanner dismisses the post-call summary.
func (s *Session) CloseCallBanner() {
	s.ctrl.Close()
}

// ---- event handlers -----------------------------------------------------

func (s *Session) registerChatHandlers() {
	s.chat.ClearHandlers()
	s.chat.On(events.EventReceiveMessage, s.handleReceiveMessage)
	s.chat.On(events.EventNewConversation, s.handleNewConversation)
	s.chat.On(events.EventMessageRevoked, s.handleMessageRevoked)
	s.chat.On(events.EventMessageDeleted, s.handleMessageDeleted)
	s.chat.On(events.EventMemberRemoved, s.handleMemberRemoved)
	s.chat.On(events.EventMemberLeft, s.handleMemberRemoved)
	s.chat.On(events.EventAdminTransferred, s.handleAdminTransferred)
	s.chat.On(events.EventMemberAdded, s.handleMemberAdded)
	s.chat.On(events.EventGroupAvatarUpdate, s.handleGroupAvatar)
	s.chat.On(events.EventGroupNameUpdate, s.handleGroupName)
}

func (s *Session) registerCallHandlers() {
	s.callCh.ClearHandlers()
	s.callCh.On(events.EventIncomingCall, s.handleIncomingCall)
	s.callCh.On(events.EventCallAccepted, s.handleCallAccepted)
	s.callCh.On(events.EventCallDeclined, s.handleCallDeclined)
	s.callCh.On(events.EventCallEnded, s.handleCallEnded)
}

func (s *Session) handleReceiveMessage(raw json.RawMessage) {
	var msg domain.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.log.Warnf("session: bad receiveMessage payload: %v", err)
		return
	}
	if s.store.ApplyIncomingMessage(&msg, s.user.ID) {
		s.saveMessage(&msg)
	}
}

func (s *Session) handleNewConversation(raw json.RawMessage) {
	var conv domain.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		s.log.Warnf("session: bad newConversation payload: %v", err)
		return
	}
	s.store.ApplyConversationCreated(&conv, s.user.ID)
	_ = s.chat.JoinRoom(conv.ID)
	s.persistAll()
}

func (s *Session) handleMessageRevoked(raw json.RawMessage) {
	var p events.MessageRevokedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.store.ApplyMessageRevoked(p.MessageID, p.ConversationID)
	if s.hist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		_ = s.hist.RevokeMessage(ctx, p.MessageID)
	}
}

func (s *Session) handleMessageDeleted(raw json.RawMessage) {
	var p events.MessageDeletedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.store.ApplyMessageDeleted(p.MessageID, p.ConversationID)
	if s.hist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		_ = s.hist.DeleteMessage(ctx, p.MessageID)
	}
}

func (s *Session) handleMemberRemoved(raw json.RawMessage) {
	var p events.MemberRemovedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.store.ApplyMemberRemoved(p.ConversationID, p.UserID, s.user.ID)
	if p.UserID == s.user.ID && s.hist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		_ = s.hist.RemoveConversation(ctx, p.ConversationID)
	}
}

func (s *Session) handleAdminTransferred(raw json.RawMessage) {
	var p events.AdminTransferredPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.store.ApplyAdminTransferred(p.ConversationID, p.NewAdminID)
}

func (s *Session) handleMemberAdded(raw json.RawMessage) {
	var p events.MemberAddedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.store.ApplyMemberAdded(p.ConversationID, p.NewMembers, s.user.ID)
}

func (s *Session) handleGroupAvatar(raw json.RawMessage) {
	var p events.GroupAvatarPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.store.ApplyGroupAvatarChanged(p.ConversationID, p.Avatar)
}

func (s *Session) handleGroupName(raw json.RawMessage) {
	var p events.GroupNamePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	s.store.ApplyGroupRenamed(p.ConversationID, p.GroupName)
}

func (s *Session) handleIncomingCall(raw json.RawMessage) {
	var p events.IncomingCallPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	// Addressed-to-me filtering happens here, at the transport boundary.
	if p.ToUserID != s.user.ID {
		return
	}
	s.prompt.Show(p)
}

func (s *Session) handleCallAccepted(raw json.RawMessage) {
	s.ctrl.HandleAccepted()
}

func (s *Session) handleCallDeclined(raw json.RawMessage) {
	var p events.CallDeclinedPayload
	_ = json.Unmarshal(raw, &p)
	s.ctrl.HandleDeclined(p.FromName)
}

func (s *Session) handleCallEnded(raw json.RawMessage) {
	s.ctrl.HandleEnded()
	s.prompt.HandleEnded()
}

func (s *Session) saveMessage(msg *domain.Message) {
	if s.hist == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := s.hist.SaveMessage(ctx, msg); err != nil {
		s.log.Warnf("session: cache message write failed: %v", err)
	}
}
