package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fynanpro/finance_backend/config"
	"github.com/fynanpro/finance_backend/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	ID        int            `gorm:"primary_key" json:"id"`
	TenantId  string         `gorm:"size:64;index;not null" json:"tenant_id"`
	Username  string         `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string         `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     *string        `gorm:"size:100;unique" json:"email"`
	Phone     string         `gorm:"size:20" json:"phone"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      UserRole       `gorm:"type:enum('Admin','Member');default:'Member'" json:"role"`
	IsActive  *bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     UserRole `json:"role"`
}

type LoginInfo struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	TenantId string `json:"tenant_id"`
	Role     string `json:"role"`
}

/*
caches:
	User:$username
*/

var userCache = config.NewCache("User", 12*time.Hour)

func (user User) RemoveInstanceRedis() error {
	return userCache.Invalidate(user.Username)
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var result LoginInfo

	user := User{}

	exists, err := userCache.Get(username, &user)
	if err != nil {
		return &result, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error
		if err != nil {
			return &result, errors.New("invalid username or password")
		}
	}

	err = utils.ComparePassword(user.Password, password)
	if err != nil && err == bcrypt.ErrMismatchedHashAndPassword {
		return &result, errors.New("invalid username or password")
	}

	if user.IsActive == nil || !*user.IsActive {
		return &result, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, user.TenantId, string(user.Role))
	if err != nil {
		return &result, err
	}

	result.Token = token
	result.Name = user.Name
	result.TenantId = user.TenantId
	result.Role = string(user.Role)

	if !exists {
		if err := userCache.Set(username, &user); err != nil {
			return &result, err
		}
	}

	return &result, nil
}

func CreateUser(ctx context.Context, tenantId string, input *NewUser) (*User, error) {

	db := config.GetDB()
	var count int64

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, "BR"); err != nil {
			return nil, errors.New("invalid phone number")
		}
	}

	err := db.WithContext(ctx).Model(&User{}).
		Where("username = ?", input.Username).Or("email = ?", input.Email).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("duplicate username or email")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleMember
	}

	user := User{
		TenantId: tenantId,
		Username: input.Username,
		Name:     input.Name,
		Email:    utils.NilIfEmpty(strings.ToLower(input.Email)),
		Phone:    input.Phone,
		Password: string(hashedPassword),
		Role:     role,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	user.PrepareGive()
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	user, err := utils.FetchModel[User](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	user.PrepareGive()
	return user, nil
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*User, error) {

	db := config.GetDB()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, errors.New("user not found")
	}

	var user User
	if err := db.WithContext(ctx).First(&user, userId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return nil, errors.New("incorrect old password")
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		return nil, err
	}

	if err := user.RemoveInstanceRedis(); err != nil {
		return nil, err
	}

	user.PrepareGive()
	return &user, nil
}
