package models

import (
	"strings"
	"time"

	"github.com/forum-next/internal/constants"

	"gorm.io/gorm"
)

// UserRole 用户角色（封闭枚举）
type UserRole string

const (
	RoleMember    UserRole = constants.UserRoleMember
	RoleModerator UserRole = constants.UserRoleModerator
	RoleAdmin     UserRole = constants.UserRoleAdmin
)

// ParseUserRole 解析角色
func ParseUserRole(raw string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Valid 是否为已知角色
func (r UserRole) Valid() bool {
	switch r {
	case RoleMember, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// User 用户表
type User struct {
	ID           uint           `gorm:"primarykey" json:"-"`                                // 主键
	UID          string         `gorm:"column:uid;uniqueIndex;size:64;not null" json:"uid"` // 对外用户标识
	Username     string         `gorm:"uniqueIndex;size:64;not null" json:"username"`       // 用户名
	Email        string         `gorm:"index;size:255" json:"email"`                        // 邮箱
	PasswordHash string         `gorm:"not null" json:"-"`                                  // 密码哈希
	Point        int64          `gorm:"not null;default:0" json:"point"`                    // 积分余额（流水投影）
	Level        int            `gorm:"not null;default:0" json:"level"`                    // 等级（由积分推导）
	Role         UserRole       `gorm:"size:32;not null;default:'member'" json:"role"`      // 角色
	Status       string         `gorm:"size:32;not null;default:'active'" json:"status"`    // 账号状态
	BannedEnd    *time.Time     `json:"banned_end"`                                         // 封禁截止时间
	LastLogin    *time.Time     `json:"last_login"`                                         // 最后登录时间
	LastActive   *time.Time     `json:"last_active"`                                        // 最后活跃时间
	Version      int64          `gorm:"not null;default:0" json:"-"`                        // 乐观锁版本号
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// IsBanned 判断在指定时间是否处于封禁状态
func (u *User) IsBanned(now time.Time) bool {
	if u == nil || u.Status != constants.UserStatusBanned {
		return false
	}
	if u.BannedEnd == nil {
		return true
	}
	return now.Before(*u.BannedEnd)
}
