package supplier

import (
	"fmt"
	"sort"
	"strings"
)

// Registry 按供应商类型路由到具体适配器
type Registry struct {
	adapters    map[Kind]Adapter
	defaultKind Kind
}

// NewRegistry 创建注册表，默认供应商必须已注册
func NewRegistry(defaultKind Kind, adapters ...Adapter) (*Registry, error) {
	registry := &Registry{adapters: make(map[Kind]Adapter, len(adapters)), defaultKind: defaultKind}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		registry.adapters[adapter.Kind()] = adapter
	}
	if _, ok := registry.adapters[defaultKind]; !ok {
		return nil, fmt.Errorf("%w: default supplier %q is not registered", ErrUnknownSupplier, defaultKind)
	}
	return registry, nil
}

// DefaultKind 默认供应商
func (r *Registry) DefaultKind() Kind {
	return r.defaultKind
}

// Resolve 根据名称获取适配器，空名称使用默认供应商
func (r *Registry) Resolve(name string) (Adapter, error) {
	if strings.TrimSpace(name) == "" {
		return r.adapters[r.defaultKind], nil
	}
	kind, err := ParseKind(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, name)
	}
	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not enabled", ErrUnknownSupplier, kind)
	}
	return adapter, nil
}

// Kinds 已注册的供应商类型
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.adapters))
	for kind := range r.adapters {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
