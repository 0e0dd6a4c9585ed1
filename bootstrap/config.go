package bootstrap

import (
	"github.com/kbukum/hypermodel/config"
)

// Config is the interface constraint for application configuration types.
// *config.Config satisfies it, and so does any struct embedding config.Config
// through promoted methods.
//
//	type TitanicConfig struct {
//	    config.Config `yaml:",inline" mapstructure:",squash"`
//	    Bucket        string `yaml:"bucket" mapstructure:"bucket"`
//	}
//
//	app, err := bootstrap.NewApp[*TitanicConfig](&cfg)
type Config interface {
	GetConfig() *config.Config
	ApplyDefaults()
	Validate() error
}
