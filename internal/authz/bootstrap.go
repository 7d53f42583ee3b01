package authz

import "fmt"

// Policy 单条资源授权
type Policy struct {
	Object string `json:"object"`
	Action string `json:"action"`
}

// RoleSeed 预置角色定义，Role 不带 role: 前缀
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// RoleView 角色列表接口的输出
type RoleView struct {
	Role     string   `json:"role"`
	Inherits []string `json:"inherits"`
	Policies []Policy `json:"policies"`
}

// BuiltinRoleSeeds 履约后台的角色矩阵；超级管理员不经 Casbin 判定
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "fulfillment_viewer",
			Policies: []Policy{
				{Object: "/admin/orders", Action: "GET"},
				{Object: "/admin/orders/:id", Action: "GET"},
				{Object: "/admin/orders/:id/supplier-events", Action: "GET"},
				{Object: "/admin/fulfillment/last-poll", Action: "GET"},
			},
		},
		{
			Role:     "fulfillment_operator",
			Inherits: []string{"fulfillment_viewer"},
			Policies: []Policy{
				{Object: "/admin/orders/:id/dispatch", Action: "POST"},
				{Object: "/admin/orders/:id/tracking/refresh", Action: "POST"},
				{Object: "/admin/fulfillment/poll", Action: "POST"},
				{Object: "/admin/fulfillment/retry", Action: "POST"},
			},
		},
		{
			Role:     "risk_reviewer",
			Inherits: []string{"fulfillment_viewer"},
			Policies: []Policy{
				{Object: "/admin/orders/:id/risk", Action: "GET"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色的继承关系与策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role := rolePrefix + seed.Role
		for _, parent := range seed.Inherits {
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, rolePrefix+parent); err != nil {
				return fmt.Errorf("link role %s to %s: %w", role, parent, err)
			}
		}
		for _, p := range seed.Policies {
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(p.Object), NormalizeAction(p.Action)); err != nil {
				return fmt.Errorf("add policy for %s: %w", role, err)
			}
		}
	}
	return nil
}
