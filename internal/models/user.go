package models

import (
	"time"

	"gorm.io/datatypes"
)

// VerifyStatus gates write actions behind email verification.
type VerifyStatus int

const (
	// VerifyUnverified is the status assigned at registration.
	VerifyUnverified VerifyStatus = iota
	// VerifyVerified marks users that confirmed their email address.
	VerifyVerified
	// VerifyBanned is assigned administratively, never by the auth core.
	VerifyBanned
)

// User is the platform identity record. Email and username are globally
// unique; the username stays unset until the user picks one.
type User struct {
	BaseModel

	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Username *string `gorm:"uniqueIndex" json:"username"`
	Password string  `gorm:"not null" json:"-"`

	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"date_of_birth"`

	Verify VerifyStatus `gorm:"default:0;index" json:"verify"`

	// EmailVerifyToken is empty once consumed or when never issued.
	// ForgotPasswordToken is empty while no reset is pending.
	EmailVerifyToken    string `json:"-"`
	ForgotPasswordToken string `json:"-"`

	Bio        string `json:"bio"`
	Location   string `json:"location"`
	Website    string `json:"website"`
	Avatar     string `json:"avatar"`
	CoverPhoto string `json:"cover_photo"`

	// OAuthProfile holds the raw provider profile captured on the first
	// federated login, for support and audit purposes.
	OAuthProfile datatypes.JSON `json:"-"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
}

// IsVerified reports whether the user may perform verified-only actions.
func (u *User) IsVerified() bool {
	return u.Verify == VerifyVerified
}
