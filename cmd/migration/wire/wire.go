//go:build wireinject
// +build wireinject

package wire

import (
	"comfycloud/internal/repository"
	"comfycloud/internal/server"
	"comfycloud/pkg/app"
	"comfycloud/pkg/log"

	"github.com/google/wire"
	"github.com/spf13/viper"
)

var repositorySet = wire.NewSet(
	repository.NewDB,
	repository.NewRedis,
	repository.NewRepository,
	repository.NewUserRepository,
	repository.NewTierConfigRepository,
	repository.NewSystemConfigRepository,
	repository.NewModelFileRepository,
)

var serverSet = wire.NewSet(
	server.NewMigrateServer,
)

// build App
func newApp(migrateServer *server.MigrateServer) *app.App {
	return app.NewApp(
		app.WithServer(migrateServer),
		app.WithName("comfycloud-migration"),
	)
}

func NewWire(*viper.Viper, *log.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		repositorySet,
		serverSet,
		newApp,
	))
}
