package config

import (
	"errors"
	"fmt"

	"github.com/weisyn/memwatch/internal/config/api"
	"github.com/weisyn/memwatch/internal/config/log"
	"github.com/weisyn/memwatch/internal/config/memwatch"
	"github.com/weisyn/memwatch/pkg/types"
)

// ValidationError 配置验证错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("配置验证失败 [%s]: %s", e.Field, e.Message)
}

// Validate 在启动时校验配置，一次返回全部错误
//
// knownFeatures 为空时不校验 disabled_features 中的功能名。
func Validate(appConfig *types.AppConfig, knownFeatures ...string) error {
	if appConfig == nil {
		appConfig = &types.AppConfig{}
	}
	var errs []error

	var logCfg *log.Config
	if appConfig.Log != nil {
		logCfg = log.New(appConfig.Log)
	} else {
		logCfg = log.New(nil)
	}
	if err := logCfg.Validate(); err != nil {
		errs = append(errs, &ValidationError{Field: "log", Message: err.Error()})
	}

	if err := api.New(appConfig.API).Validate(); err != nil {
		errs = append(errs, &ValidationError{Field: "api", Message: err.Error()})
	}

	if err := memwatch.New(appConfig.Memwatch).Validate(); err != nil {
		errs = append(errs, &ValidationError{Field: "memwatch", Message: err.Error()})
	}

	if appConfig.Memwatch != nil && len(knownFeatures) > 0 {
		known := make(map[string]bool, len(knownFeatures))
		for _, name := range knownFeatures {
			known[name] = true
		}
		for _, name := range appConfig.Memwatch.DisabledFeatures {
			if !known[name] {
				errs = append(errs, &ValidationError{
					Field:   "memwatch.disabled_features",
					Message: fmt.Sprintf("未知功能名 %q", name),
				})
			}
		}
	}

	return errors.Join(errs...)
}
