package http

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/tidehaven/accountd/internal/account/domain"
)

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Message is the generic confirmation response.
type Message struct {
	Message string `json:"message"`
}

// UserPublic is the externally visible user shape. It never carries the
// password hash.
type UserPublic struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UsersPublic is the paginated listing response.
type UsersPublic struct {
	Data  []UserPublic `json:"data"`
	Count int64        `json:"count"`
}

func toUserPublic(u domain.User) UserPublic {
	return UserPublic{
		ID:          u.ID.String(),
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toUsersPublic(users []domain.User, count int64) UsersPublic {
	out := UsersPublic{Data: make([]UserPublic, 0, len(users)), Count: count}
	for _, u := range users {
		out.Data = append(out.Data, toUserPublic(u))
	}
	return out
}

type userCreateRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser *bool  `json:"is_superuser"`
}

func (r userCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(0, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&r.FullName, validation.Length(0, 255)),
	)
}

type userRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (r userRegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(0, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&r.FullName, validation.Length(0, 255)),
	)
}

type userUpdateRequest struct {
	Email       *string `json:"email"`
	FullName    *string `json:"full_name"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
	Password    *string `json:"password"`
}

func (r userUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Length(0, 255), is.Email),
		validation.Field(&r.FullName, validation.Length(0, 255)),
		validation.Field(&r.Password, validation.Length(8, 128)),
	)
}

func (r userUpdateRequest) patch() domain.UserPatch {
	return domain.UserPatch{
		Email:       r.Email,
		FullName:    r.FullName,
		IsActive:    r.IsActive,
		IsSuperuser: r.IsSuperuser,
		Password:    r.Password,
	}
}

// userUpdateMeRequest is the self-service subset: no flags, no password
// (password has its own endpoint with a current-password check).
type userUpdateMeRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
}

func (r userUpdateMeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Length(0, 255), is.Email),
		validation.Field(&r.FullName, validation.Length(0, 255)),
	)
}

func (r userUpdateMeRequest) patch() domain.UserPatch {
	return domain.UserPatch{
		Email:    r.Email,
		FullName: r.FullName,
	}
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r updatePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required, validation.Length(8, 128)),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 128)),
	)
}

type newPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (r newPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 128)),
	)
}

type presignUploadRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
}

func (r presignUploadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required, validation.Length(1, 1024)),
		validation.Field(&r.ContentType, validation.Length(0, 255)),
	)
}

type presignDownloadRequest struct {
	Key string `json:"key"`
}

func (r presignDownloadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required, validation.Length(1, 1024)),
	)
}

// PresignedURL is the object-storage presign response.
type PresignedURL struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}
