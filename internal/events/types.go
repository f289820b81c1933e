package events

// Wire event names for the two realtime channels. These match the
// server's socket namespaces verbatim.

// Chat channel, server -> client
const (
	EventReceiveMessage    = "receiveMessage"
	EventNewConversation   = "newConversation"
	EventMessageRevoked    = "messageRevoked"
	EventMessageDeleted    = "messageDeleted"
	EventMemberRemoved     = "memberRemoved"
	EventMemberLeft        = "memberLeft"
	EventAdminTransferred  = "adminTransferred"
	EventMemberAdded       = "memberAdded"
	EventGroupAvatarUpdate = "groupAvatarUpdated"
	EventGroupNameUpdate   = "groupNameUpdated"
)

// Chat channel, client -> server
const (
	EventSetup                     = "setup"
	EventJoinRoom                  = "joinRoom"
	EventSendMessage               = "sendMessage"
	EventDeleteMessage             = "deleteMessage"
	EventRevokeMessage             = "revokeMessage"
	EventRemoveMember              = "removeMember"
	EventTransferAdmin             = "transferAdmin"
	EventLeaveGroup                = "leaveGroup"
	EventAddMembersToGroup         = "addMembersToGroup"
	EventUpdateGroupAvatar         = "updateGroupAvatar"
	EventUpdateGroupName           = "updateGroupName"
	EventCreateGroupConversation   = "createGroupConversation"
	EventCreatePrivateConversation = "createPrivateConversation"
)

// Call channel, both directions
const (
	EventCallJoin     = "join"
	EventIncomingCall = "incomingCall"
	EventCallAccepted = "callAccepted"
	EventDeclineCall  = "declineCall"
	EventEndCall      = "endCall"
	EventCallDeclined = "callDeclined"
	EventCallEnded    = "callEnded"
)
