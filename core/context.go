package core

import (
	"context"

	"perfdash/config"
)

type ServiceContext struct {
	Context context.Context
	Loader  Loader
	Config  config.Config
}
