package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/forum-next/internal/models"
)

const userStateCacheTTL = 10 * time.Minute

// UserState 用户身份快照（中间件解析访问者时使用）
// banned_end 为 Unix 秒时间戳，0 表示未设置
type UserState struct {
	UserID    uint   `json:"user_id"`
	UID       string `json:"uid"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	BannedEnd int64  `json:"banned_end"`
	UpdatedAt int64  `json:"updated_at"`
}

func userStateKey(userID uint) string {
	return fmt.Sprintf("user:state:%d", userID)
}

// BuildUserState 从用户模型构建身份快照
func BuildUserState(user *models.User) *UserState {
	if user == nil {
		return nil
	}
	state := &UserState{
		UserID:    user.ID,
		UID:       user.UID,
		Role:      string(user.Role),
		Status:    user.Status,
		UpdatedAt: time.Now().Unix(),
	}
	if user.BannedEnd != nil {
		state.BannedEnd = user.BannedEnd.Unix()
	}
	return state
}

// GetUserState 获取身份快照
func GetUserState(ctx context.Context, userID uint) (*UserState, bool, error) {
	if userID == 0 {
		return nil, false, nil
	}
	var state UserState
	hit, err := GetJSON(ctx, userStateKey(userID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetUserState 写入身份快照
func SetUserState(ctx context.Context, state *UserState) error {
	if state == nil || state.UserID == 0 {
		return nil
	}
	return SetJSON(ctx, userStateKey(state.UserID), state, userStateCacheTTL)
}

// DelUserState 删除身份快照（封禁、角色变更后调用）
func DelUserState(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	return Del(ctx, userStateKey(userID))
}
