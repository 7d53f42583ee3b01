package supplier

import (
	"strings"

	"github.com/voltdrop/internal/config"
	"github.com/voltdrop/internal/logger"
)

// NewRegistryFromConfig 按配置启用供应商适配器
func NewRegistryFromConfig(cfg config.SupplierConfig) (*Registry, error) {
	defaultKind, err := ParseKind(cfg.Default)
	if err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout()
	adapters := make([]Adapter, 0, 3)
	if cfg.BigBuy.Enabled {
		if strings.TrimSpace(cfg.BigBuy.APIKey) == "" {
			logger.Warnw("supplier_api_key_missing", "supplier", KindBigBuy)
		}
		adapters = append(adapters, NewBigBuyAdapter(cfg.BigBuy.BaseURL, cfg.BigBuy.APIKey, timeout))
	}
	if cfg.CJ.Enabled {
		if strings.TrimSpace(cfg.CJ.APIKey) == "" {
			logger.Warnw("supplier_api_key_missing", "supplier", KindCJ)
		}
		adapters = append(adapters, NewCJAdapter(cfg.CJ.BaseURL, cfg.CJ.APIKey, timeout))
	}
	if cfg.Sandbox.Enabled {
		adapters = append(adapters, NewSandboxAdapter())
	}
	return NewRegistry(defaultKind, adapters...)
}
