package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/contentbot/internal/ledger"
)

const (
	txtBotInactive     = "⛔ The bot is currently inactive. Please try again later."
	txtWelcomeNew      = "👋 Welcome! You are not registered yet. Press the button below to register."
	txtWelcomeBack     = "👋 Welcome back! Choose an option:"
	txtMainMenu        = "🏠 Main menu. Choose an option:"
	txtAlreadyReg      = "ℹ️ You are already registered."
	txtPleaseRegister  = "⚠️ You are not registered. Send /start to register."
	txtNotAuthorized   = "⛔ You are not allowed to do this."
	txtGenericFailure  = "❗ Something went wrong. Please try again."
	txtStillNotMember  = "You have not joined all required channels yet."
	txtCancelled       = "❌ Cancelled."
	txtUnknownAction   = "Unknown action."
	txtAlreadyDecided  = "This submission has already been processed."
	txtSubmissionGone  = "Submission not found."
	txtAskFirstName    = "✍️ Please enter your first name:"
	txtAskLastName     = "✍️ Please enter your last name:"
	txtAskGroupLeader  = "👥 Please enter your group leader's name:"
	txtAskCard         = "💳 Please enter your card number or wallet address:"
	txtAskSheba        = "🏦 Please enter your Sheba number (IR followed by 24 digits):"
	txtEmptyInput      = "⚠️ This field cannot be empty. Please try again:"
	txtBadSheba        = "⚠️ Invalid Sheba number. It must start with IR and be exactly 26 characters. Please try again:"
	txtRegistered      = "✅ Registration complete!"
	txtFieldUpdated    = "✅ Your profile has been updated."
	txtAskContent      = "📤 Send the content you want to submit (text or photo):"
	txtEmptyContent    = "⚠️ Please send a non-empty text or a photo:"
	txtContentSent     = "✅ Your content has been submitted and is awaiting approval."
	txtContentFailed   = "❗ Your content could not be delivered. Please send it again."
	txtAskSupport      = "🆘 Write your message for support:"
	txtSupportSent     = "✅ Your message has been sent to support."
	txtSupportFailed   = "❗ Your message could not be delivered right now. Please try again later."
	txtEditMenu        = "✏️ Which field do you want to edit?"
	txtAskBalance      = "💰 Send the user id and the new balance separated by a space.\nExample: 12345 100000"
	txtBadBalance      = "⚠️ Invalid format. Send: <user id> <amount> (amount must be a non-negative number)."
	txtUserNotFound    = "⚠️ User not found. Please try again:"
	txtTargetGone      = "⚠️ The target user no longer exists."
	txtAskBroadcast    = "📢 Send the message to broadcast to all users:"
	txtAskPrivateUser  = "✉️ Send the user id or the user's full name (First Last):"
	txtBadPrivateUser  = "⚠️ Send a numeric user id or a full name as: First Last"
	txtAmbiguousName   = "⚠️ Several users match this name. Please send the user id instead:"
	txtAskPrivateText  = "✉️ Send the message for %s (ID: %d):"
	txtPrivateSent     = "✅ Message delivered."
	txtAskApproved     = "🔢 How many items of submission %d were approved? Send a whole number (0 or more):"
	txtBadApproved     = "⚠️ Send a whole number that is 0 or more:"
	txtAskResetID      = "♻️ Send the id of the user whose approved count should be reset:"
	txtBadUserID       = "⚠️ Send a numeric user id:"
	txtApprovedReset   = "✅ Approved count of user %d was reset."
	txtResetNotice     = "♻️ Your approved content count has been reset."
	txtReplySent       = "✅ Reply sent."
	txtNoUsers         = "No registered users yet."
	txtNoSupport       = "No support messages yet."
	txtDeliveryFailed  = "❗ Could not deliver the message to user %d."
	txtBalanceNotice   = "💰 Your balance has been updated: %s"
	txtBalanceUpdated  = "✅ Balance of user %d set to %s."
	txtBotOn           = "✅ The bot is now active."
	txtBotOff          = "⛔ The bot is now inactive."
	txtBotOnNotice     = "✅ The bot is active again. Send /start to continue."
	txtBotOffNotice    = "⛔ The bot has been turned off by the administrator."
	txtBroadcastReport = "📢 Broadcast sent to %d of %d users."
)

func txtJoinChannels(missing []ledger.Channel) string {
	var b strings.Builder
	b.WriteString("📢 Please join the following channels to use the bot:\n")
	for _, ch := range missing {
		b.WriteString("\n• ")
		b.WriteString(ch.Title)
		if ch.InviteLink != "" {
			b.WriteString(": ")
			b.WriteString(ch.InviteLink)
		}
	}
	b.WriteString("\n\nThen press the button below.")
	return b.String()
}

func txtAskReply(target int64) string {
	return fmt.Sprintf("✍️ Replying to user %d. Send your reply:", target)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optional(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func txtProfile(u ledger.User) string {
	return fmt.Sprintf("👤 Your profile\n\nFirst name: %s\nLast name: %s\nGroup leader: %s\nCard/Wallet: %s\nSheba: %s\nBalance: %s\nApproved items: %d",
		u.FirstName, u.LastName, optional(u.GroupLeader.String), optional(u.CardNumber),
		optional(u.ShebaNumber.String), formatAmount(u.Balance), u.ApprovedCount)
}

func txtBalance(u ledger.User) string {
	return fmt.Sprintf("💰 Your balance: %s\nApproved items: %d", formatAmount(u.Balance), u.ApprovedCount)
}

func txtAdminPanel(users int, active bool) string {
	status := "🟢 online"
	if !active {
		status = "🔴 offline"
	}
	return fmt.Sprintf("🛠 Admin panel\n\nUsers: %d\nBot status: %s", users, status)
}

func txtNewSubmission(u ledger.User, sub ledger.Submission) string {
	head := fmt.Sprintf("📝 New content from %s (ID: %d)\nSubmission: %d", u.FullName(), u.ID, sub.ID)
	if sub.Kind == ledger.ContentPhoto {
		return head
	}
	return head + "\n\n" + sub.Content
}

func txtSupportForward(u ledger.User, text string) string {
	return fmt.Sprintf("🆘 Support message from %s (ID: %d):\n\n%s", u.FullName(), u.ID, text)
}

func txtSupportReply(text string) string {
	return "📩 Reply from support:\n\n" + text
}

func txtPrivateMessage(text string) string {
	return "📩 Message from the administrator:\n\n" + text
}

func txtDecision(sub ledger.Submission, approved int) string {
	if sub.Status == ledger.StatusApproved {
		return fmt.Sprintf("✅ Content of user %d approved (ID: %d, items: %d)", sub.UserID, sub.ID, approved)
	}
	return fmt.Sprintf("❌ Content of user %d rejected (ID: %d)", sub.UserID, sub.ID)
}

func txtDecisionNotice(sub ledger.Submission, approved int) string {
	if sub.Status == ledger.StatusApproved {
		return fmt.Sprintf("✅ Your content was approved. Approved items: %d", approved)
	}
	return "❌ Your content was rejected."
}

func txtUserLine(u ledger.User) string {
	return fmt.Sprintf("ID: %d | %s | approved: %d | balance: %s",
		u.ID, u.FullName(), u.ApprovedCount, formatAmount(u.Balance))
}

func txtSupportLine(m ledger.SupportMessage) string {
	arrow := "➡️ user"
	if m.Direction == ledger.AdminToUser {
		arrow = "⬅️ admin"
	}
	return fmt.Sprintf("%s %d (%s):\n%s", arrow, m.UserID, m.CreatedAt.Format("2006-01-02 15:04"), m.Message)
}
