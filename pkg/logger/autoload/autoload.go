package autoload

import (
	configx "github.com/tanpawarit/auracx/pkg/config"
	logx "github.com/tanpawarit/auracx/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
