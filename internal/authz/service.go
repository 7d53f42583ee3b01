package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	rolePrefix      = "role:"
)

// 管理员主体 admin:<id> 通过 g 关联到 role:<name>，角色间继承同样走 g
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	ErrUnavailable = errors.New("authz service unavailable")
	ErrUnknownRole = errors.New("unknown role")
)

// Service Casbin 授权服务，角色集合固定为预置角色矩阵
type Service struct {
	enforcer *casbin.SyncedEnforcer
	known    map[string]RoleSeed
}

// NewService 创建授权服务，策略持久化在 casbin_rule 表
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy: %w", err)
	}

	known := make(map[string]RoleSeed)
	for _, seed := range BuiltinRoleSeeds() {
		known[rolePrefix+seed.Role] = seed
	}
	return &Service{enforcer: enforcer, known: known}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// EnforceAdmin 判定管理员能否以 act 访问 obj，obj 可带 /api/v1 前缀
func (s *Service) EnforceAdmin(adminID uint, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(SubjectForAdmin(adminID), NormalizeObject(obj), NormalizeAction(act))
}

// ListRoles 列出可分配的角色及其权限
func (s *Service) ListRoles() ([]RoleView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	views := make([]RoleView, 0, len(s.known))
	for role, seed := range s.known {
		rules, err := s.enforcer.GetFilteredPolicy(0, role)
		if err != nil {
			return nil, fmt.Errorf("list role policies: %w", err)
		}
		view := RoleView{Role: role, Inherits: make([]string, 0, len(seed.Inherits)), Policies: make([]Policy, 0, len(rules))}
		for _, parent := range seed.Inherits {
			view.Inherits = append(view.Inherits, rolePrefix+parent)
		}
		for _, rule := range rules {
			if len(rule) >= 3 {
				view.Policies = append(view.Policies, Policy{Object: rule[1], Action: rule[2]})
			}
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Role < views[j].Role })
	return views, nil
}

// SetAdminRoles 覆盖管理员角色；任一角色未知时不做任何修改
func (s *Service) SetAdminRoles(adminID uint, roles []string) error {
	if adminID == 0 {
		return errors.New("admin id is required")
	}
	if err := s.ready(); err != nil {
		return err
	}
	normalized := make([]string, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	for _, raw := range roles {
		role, err := NormalizeRole(raw)
		if err != nil {
			return err
		}
		if _, ok := s.known[role]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRole, role)
		}
		if !seen[role] {
			seen[role] = true
			normalized = append(normalized, role)
		}
	}

	subject := SubjectForAdmin(adminID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear admin roles: %w", err)
	}
	for _, role := range normalized {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, role); err != nil {
			return fmt.Errorf("assign admin role: %w", err)
		}
	}
	return nil
}

// GetAdminRoles 查询管理员直接持有的角色
func (s *Service) GetAdminRoles(adminID uint) ([]string, error) {
	if adminID == 0 {
		return nil, errors.New("admin id is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("get admin roles: %w", err)
	}
	sort.Strings(roles)
	return roles, nil
}

func SubjectForAdmin(adminID uint) string {
	return fmt.Sprintf("admin:%d", adminID)
}

// NormalizeRole 补齐 role: 前缀，空格转下划线
func NormalizeRole(role string) (string, error) {
	name := strings.TrimPrefix(strings.TrimSpace(role), rolePrefix)
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "" {
		return "", errors.New("role is required")
	}
	return rolePrefix + name, nil
}

// NormalizeObject 去掉 /api/v1 前缀，保证以 / 开头
func NormalizeObject(object string) string {
	object = strings.TrimSpace(object)
	if !strings.HasPrefix(object, "/") {
		object = "/" + object
	}
	if object == apiV1Prefix {
		return "/"
	}
	if strings.HasPrefix(object, apiV1Prefix+"/") {
		return strings.TrimPrefix(object, apiV1Prefix)
	}
	return object
}

func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}

// RolesGranting 返回能访问 obj/act 的预置角色（含继承）
func (s *Service) RolesGranting(obj, act string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	obj, act = NormalizeObject(obj), NormalizeAction(act)
	granted := make([]string, 0, len(s.known))
	for role := range s.known {
		ok, err := s.enforcer.Enforce(role, obj, act)
		if err != nil {
			return nil, err
		}
		if ok {
			granted = append(granted, role)
		}
	}
	sort.Strings(granted)
	return granted, nil
}
