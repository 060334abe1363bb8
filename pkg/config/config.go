package config

import (
	"errors"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Load 读取配置，优先级：flags > 环境变量 > 配置文件 > 默认值。
//
//	file 为空时按约定找 ./config/{service}.yaml 或 ./{service}.yaml，找不到不算错误；
//	file 非空时必须能读到。
//	环境变量前缀为大写的 service，例如 CBMONITOR_PLOTS_PER_FIG 覆盖 plots-per-fig；
//	当前目录有 .env 时先加载，已存在的环境变量不会被覆盖
func Load(service string, flags *pflag.FlagSet, file string, out interface{}) (*viper.Viper, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	v := viper.New()

	v.SetEnvPrefix(strings.ToUpper(service))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName(service)
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return nil, err
	}
	return v, nil
}

// Watch 监听配置文件变更，每次变更解析成一份新的 T 交给 fn；
// 没有使用配置文件时什么都不做，返回 false
func Watch[T any](v *viper.Viper, fn func(T, error)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var next T
		err := v.Unmarshal(&next)
		fn(next, err)
	})
	v.WatchConfig()
	return true
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}
