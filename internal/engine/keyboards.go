package engine

import (
	"strconv"

	"github.com/m3rciful/contentbot/core/telegram/keyboard"
	"github.com/m3rciful/contentbot/internal/ledger"
)

func btn(text, key string) keyboard.Button {
	return keyboard.Button{Text: text, Unique: key}
}

func btnID(text, key string, id int64) keyboard.Button {
	return keyboard.Button{Text: text, Unique: key, Data: strconv.FormatInt(id, 10)}
}

func registerKeyboard() Keyboard {
	return Keyboard{{btn("📝 Register", CbRegister)}}
}

// membershipKeyboard links every channel that has an invite link, then
// offers the re-check button.
func membershipKeyboard(missing []ledger.Channel) Keyboard {
	kb := make(Keyboard, 0, len(missing)+1)
	for _, ch := range missing {
		if ch.InviteLink != "" {
			kb = append(kb, []keyboard.Button{{Text: "➕ " + ch.Title, URL: ch.InviteLink}})
		}
	}
	return append(kb, []keyboard.Button{btn("✅ I have joined", CbCheckMembership)})
}

func mainMenuKeyboard() Keyboard {
	return Keyboard{
		{btn("📤 Submit content", CbSubmitContent)},
		{btn("👤 My profile", CbMyProfile), btn("✏️ Edit profile", CbEditProfile)},
		{btn("💰 Check balance", CbCheckBalance), btn("🆘 Support", CbSupport)},
	}
}

func backKeyboard() Keyboard {
	return Keyboard{{btn("🔙 Back", CbBackToMain)}}
}

func editProfileKeyboard() Keyboard {
	return Keyboard{
		{btn("First name", CbEditFirstName), btn("Last name", CbEditLastName)},
		{btn("Group leader", CbEditGroupLeader)},
		{btn("Card/Wallet", CbEditCardOrWallet), btn("Sheba", CbEditSheba)},
		{btn("🔙 Back", CbBackToMain)},
	}
}

func adminPanelKeyboard(active bool) Keyboard {
	toggle := "🔴 Turn bot off"
	if !active {
		toggle = "🟢 Turn bot on"
	}
	return Keyboard{
		{btn("👥 View users", CbViewUsers), btn(toggle, CbToggleBot)},
		{btn("💰 Manage balances", CbManageBalances), btn("🆘 Support messages", CbViewSupport)},
		{btn("📢 Broadcast", CbBroadcast), btn("✉️ Private message", CbPrivateMessage)},
		{btn("♻️ Reset approved count", CbResetApprovedCount)},
	}
}

func moderationKeyboard(submissionID int64) Keyboard {
	return Keyboard{{
		btnID("✅ Approve", CbApprove, submissionID),
		btnID("❌ Reject", CbReject, submissionID),
	}}
}

func replyKeyboard(userID int64) Keyboard {
	return Keyboard{{btnID("↩️ Reply", CbReply, userID)}}
}

func cancelReplyKeyboard() Keyboard {
	return Keyboard{{btn("❌ Cancel", CbCancelReply)}}
}
