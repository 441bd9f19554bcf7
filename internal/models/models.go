package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
)

// CanFund reports whether the role is allowed to fund user balances.
func (r Role) CanFund() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type Account struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Role         Role            `json:"role"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type MovementKind string

const (
	MovementPeerTransfer MovementKind = "PEER_TRANSFER"
	MovementAdminFunding MovementKind = "ADMIN_FUNDING"
)

// Movement is the append-only ledger record of a balance change. It is
// created inside the same database transaction that mutates the account
// balances and is never updated afterwards.
type Movement struct {
	ID                   string          `json:"id"`
	SourceAccountID      string          `json:"source_account_id"`
	DestinationAccountID string          `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Kind                 MovementKind    `json:"kind"`
	CreatedAt            time.Time       `json:"created_at"`
}

// MovementRecord is the read-side projection of a movement for history
// listings. Credential material never appears here.
type MovementRecord struct {
	ID                string          `json:"id"`
	Amount            decimal.Decimal `json:"amount"`
	Kind              MovementKind    `json:"kind"`
	CreatedAt         time.Time       `json:"created_at"`
	SenderUsername    string          `json:"sender_username"`
	RecipientUsername string          `json:"recipient_username"`
}

// MovementPage is one page of movement history plus pagination totals.
type MovementPage struct {
	Items      []*MovementRecord `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type CreateTransferRequest struct {
	// Recipient is either an account id or a username; the handler resolves
	// usernames before calling the transfer engine.
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
}

type FundUserRequest struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type MovementResponse struct {
	ID                   string          `json:"id"`
	SourceAccountID      string          `json:"source_account_id"`
	DestinationAccountID string          `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Kind                 MovementKind    `json:"kind"`
	CreatedAt            time.Time       `json:"created_at"`
}

type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// UserSummary is the admin-facing listing projection of an account.
type UserSummary struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type UserListResponse struct {
	Items    []*UserSummary `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
