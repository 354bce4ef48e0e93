package fx

import (
	"go.uber.org/fx"

	"github.com/naheedroomy/valorantsl-new/internal/config"
	"github.com/naheedroomy/valorantsl-new/internal/logger"
	"github.com/naheedroomy/valorantsl-new/internal/riot"
	"github.com/naheedroomy/valorantsl-new/internal/server"
	"github.com/naheedroomy/valorantsl-new/internal/storage"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	// storage
	fx.Provide(storage.NewClient),
	fx.Provide(storage.NewPlayerStore),
	// api client
	fx.Provide(riot.NewClient),
	// server
	fx.Provide(server.New),
)
