// Package ledger is the durable store behind the conversation engine: user
// profiles, submissions and their moderation outcome, the support thread log,
// the global bot switch and the required-channel list.
package ledger

import (
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the referenced user or submission does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrNotPending is returned when a moderation decision targets a decided submission.
	ErrNotPending = errors.New("ledger: submission is not pending")
)

// User is a registered participant.
type User struct {
	ID            int64          `db:"user_id"`
	FirstName     string         `db:"first_name"`
	LastName      string         `db:"last_name"`
	GroupLeader   sql.NullString `db:"group_leader"`
	CardNumber    string         `db:"card_number"`
	ShebaNumber   sql.NullString `db:"sheba_number"`
	Balance       float64        `db:"balance"`
	ApprovedCount int            `db:"approved_count"`
	RegisteredAt  time.Time      `db:"registered_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ContentKind is the payload type of a submission.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentPhoto ContentKind = "photo"
)

// SubmissionStatus is the moderation status of a submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// Submission is one content unit sent for moderation. For photos Content
// holds the transport file reference.
type Submission struct {
	ID          int64            `db:"id"`
	UserID      int64            `db:"user_id"`
	Content     string           `db:"content"`
	Kind        ContentKind      `db:"content_type"`
	Status      SubmissionStatus `db:"status"`
	SubmittedAt time.Time        `db:"submitted_at"`
}

// ApprovalDetail records how many items of a submission were approved.
type ApprovalDetail struct {
	SubmissionID  int64     `db:"submission_id"`
	ApprovedCount int       `db:"approved_count"`
	CreatedAt     time.Time `db:"created_at"`
}

// Direction of a support message.
type Direction string

const (
	UserToAdmin Direction = "user_to_admin"
	AdminToUser Direction = "admin_to_user"
)

// SupportMessage is one entry of a user/admin thread.
type SupportMessage struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Message   string    `db:"message"`
	Direction Direction `db:"direction"`
	CreatedAt time.Time `db:"created_at"`
}

// Channel is a chat users must join before using the bot.
type Channel struct {
	ID         int64  `db:"channel_id"`
	Title      string `db:"title"`
	InviteLink string `db:"invite_link"`
}

// Field names an editable profile column.
type Field string

const (
	FieldFirstName   Field = "first_name"
	FieldLastName    Field = "last_name"
	FieldGroupLeader Field = "group_leader"
	FieldCard        Field = "card_number"
	FieldSheba       Field = "sheba_number"
)

func (f Field) valid() bool {
	switch f {
	case FieldFirstName, FieldLastName, FieldGroupLeader, FieldCard, FieldSheba:
		return true
	}
	return false
}
