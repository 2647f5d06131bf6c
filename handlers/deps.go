package handlers

import (
	"skystore/config"
	"skystore/services"
	"skystore/utils"

	"github.com/gin-gonic/gin"
)

var (
	appServices *services.Container
	appConfig   *config.Config
)

func SetServices(container *services.Container) {
	appServices = container
}

func SetConfig(cfg *config.Config) {
	appConfig = cfg
}

func getServices() *services.Container {
	if appServices == nil {
		panic("services container is not initialized")
	}
	return appServices
}

func getConfig() *config.Config {
	if appConfig == nil {
		panic("config is not initialized")
	}
	return appConfig
}

func respondServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := err.(*services.AppError); ok {
		if appErr.Data != nil {
			utils.ErrorWithData(c, appErr.HTTPCode, appErr.Message, appErr.Data)
		} else {
			utils.Error(c, appErr.HTTPCode, appErr.Message)
		}
		return true
	}
	utils.Error(c, 500, "internal error")
	return true
}
