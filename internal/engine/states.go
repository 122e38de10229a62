package engine

import "github.com/m3rciful/contentbot/core/telegram/state"

// Registration flow.
const (
	StateFirstName    state.State = "waiting_for_first_name"
	StateLastName     state.State = "waiting_for_last_name"
	StateGroupLeader  state.State = "waiting_for_group_leader"
	StateCardOrWallet state.State = "waiting_for_card_or_wallet"
	StateSheba        state.State = "waiting_for_sheba"
)

// Profile edit flow.
const (
	StateEditFirstName    state.State = "editing_first_name"
	StateEditLastName     state.State = "editing_last_name"
	StateEditGroupLeader  state.State = "editing_group_leader"
	StateEditCardOrWallet state.State = "editing_card_or_wallet"
	StateEditSheba        state.State = "editing_sheba"
)

// User flow.
const (
	StateContent state.State = "waiting_for_content"
	StateSupport state.State = "waiting_for_support"
)

// Admin flow.
const (
	StateBalanceUpdate   state.State = "waiting_for_balance_update"
	StateReply           state.State = "waiting_for_reply"
	StateBroadcast       state.State = "waiting_for_broadcast"
	StatePrivateUser     state.State = "waiting_for_private_user"
	StatePrivateMessage  state.State = "waiting_for_private_message"
	StateApprovalDetails state.State = "waiting_for_approval_details"
	StateResetApproved   state.State = "waiting_for_reset_approved"
)

// Gate.
const (
	StateAwaitingMembership state.State = "awaiting_membership"
)

// States lists every conversation state the engine can enter. The engine
// refuses to start unless each of them has exactly one step.
var States = []state.State{
	StateFirstName, StateLastName, StateGroupLeader, StateCardOrWallet, StateSheba,
	StateEditFirstName, StateEditLastName, StateEditGroupLeader, StateEditCardOrWallet, StateEditSheba,
	StateContent, StateSupport,
	StateBalanceUpdate, StateReply, StateBroadcast, StatePrivateUser, StatePrivateMessage,
	StateApprovalDetails, StateResetApproved,
	StateAwaitingMembership,
}

// Keys carried in state.Data.
const (
	dataTargetUser   = "target_user_id"
	dataSubmission   = "submission_id"
	dataMessageChat  = "msg_chat"
	dataMessageID    = "msg_id"
	dataMessagePhoto = "msg_photo"
)

// Callback keys. Tokens with an id travel as key plus payload.
const (
	CbRegister        = "register"
	CbCheckMembership = "check_membership"
	CbSubmitContent   = "submit_content"
	CbMyProfile       = "my_profile"
	CbEditProfile     = "edit_profile"
	CbBackToMain      = "back_to_main"
	CbSupport         = "support"
	CbCheckBalance    = "check_balance"

	CbEditFirstName    = "edit_first_name"
	CbEditLastName     = "edit_last_name"
	CbEditGroupLeader  = "edit_group_leader"
	CbEditCardOrWallet = "edit_card_or_wallet"
	CbEditSheba        = "edit_sheba"

	CbToggleBot          = "toggle_bot"
	CbViewUsers          = "view_users"
	CbManageBalances     = "manage_balances"
	CbViewSupport        = "view_support"
	CbBroadcast          = "broadcast_message"
	CbPrivateMessage     = "private_message"
	CbResetApprovedCount = "reset_approved_count"
	CbCancelReply        = "cancel_reply"
	CbReply              = "reply"
	CbApprove            = "approve"
	CbReject             = "reject"
)
