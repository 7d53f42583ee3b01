package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/voltdrop/internal/models"
)

// 管理员改密或吊销 token 后最多延迟一个 TTL 生效
const authStateCacheTTL = 10 * time.Minute

// AdminAuthState JWT 中间件每次请求需要的管理员字段
type AdminAuthState struct {
	AdminID            uint       `json:"admin_id"`
	Username           string     `json:"username"`
	IsSuper            bool       `json:"is_super"`
	TokenVersion       uint64     `json:"token_version"`
	TokenInvalidBefore *time.Time `json:"token_invalid_before,omitempty"`
}

func adminAuthStateKey(adminID uint) string {
	return "auth:admin:" + strconv.FormatUint(uint64(adminID), 10)
}

func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	return &AdminAuthState{
		AdminID:            admin.ID,
		Username:           admin.Username,
		IsSuper:            admin.IsSuper,
		TokenVersion:       admin.TokenVersion,
		TokenInvalidBefore: admin.TokenInvalidBefore,
	}
}

// ToAdmin 只还原鉴权字段，密码等字段为空
func (s *AdminAuthState) ToAdmin() *models.Admin {
	if s == nil {
		return nil
	}
	return &models.Admin{
		ID:                 s.AdminID,
		Username:           s.Username,
		IsSuper:            s.IsSuper,
		TokenVersion:       s.TokenVersion,
		TokenInvalidBefore: s.TokenInvalidBefore,
	}
}

func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	var state AdminAuthState
	hit, err := GetJSON(ctx, adminAuthStateKey(adminID), &state)
	if err != nil || !hit {
		return nil, false, err
	}
	return &state, true, nil
}

func SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, adminAuthStateKey(state.AdminID), state, authStateCacheTTL)
}
