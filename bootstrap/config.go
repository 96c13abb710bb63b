package bootstrap

import (
	"github.com/kbukum/mediaflow/config"
)

// Config is satisfied by any struct embedding config.ServiceConfig, through
// its promoted methods.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
