package main

import (
	"context"
	"flag"
	"fmt"

	"comfycloud/cmd/server/wire"
	"comfycloud/pkg/config"
	"comfycloud/pkg/log"

	"go.uber.org/zap"
)

// @title           Comfy Cloud API
// @version         1.0.0
// @description     Comfy Cloud is a multi-tenant GPU rendering service built on a pool of ComfyUI worker instances.
// @termsOfService  http://swagger.io/terms/
// @contact.name   Comfy Cloud Support
// @contact.email  support@comfycloud.local
// @license.name  Apache 2.0
// @license.url   https://www.apache.org/licenses/LICENSE-2.0
// @host      localhost:8000
// @securityDefinitions.apiKey Bearer
// @in header
// @name Authorization
// @externalDocs.description  OpenAPI
// @externalDocs.url          https://swagger.io/resources/open-api/
func main() {
	var envConf = flag.String("conf", "config/local.yml", "config path, eg: -conf ./config/local.yml")
	flag.Parse()
	conf := config.NewConfig(*envConf)

	logger := log.NewLog(conf)

	app, cleanup, err := wire.NewWire(conf, logger)
	defer cleanup()
	if err != nil {
		panic(err)
	}
	logger.Info("server start", zap.String("host", fmt.Sprintf("http://%s:%d", conf.GetString("http.host"), conf.GetInt("http.port"))))
	logger.Info("docs addr", zap.String("addr", fmt.Sprintf("http://%s:%d/swagger/index.html", conf.GetString("http.host"), conf.GetInt("http.port"))))
	if err = app.Run(context.Background()); err != nil {
		panic(err)
	}
}
