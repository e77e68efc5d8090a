package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatIDTelegramENV = "TELEGRAM_CHAT_ID"
)

// Config ...
type Config struct {
	Bridge struct {
		BaseHTTP string `mapstructure:"base_http"` // например http://127.0.0.1:5001
		BaseWS   string `mapstructure:"base_ws"`   // например ws://127.0.0.1:5001
	} `mapstructure:"bridge"`

	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`

	Service struct {
		AdminAddr string `mapstructure:"admin_addr"` // ":8080"
	} `mapstructure:"service"`

	Jaeger struct {
		Host string `mapstructure:"host"` // пусто = трейсинг выключен
		Port int    `mapstructure:"port"`
	} `mapstructure:"jaeger"`

	Trading struct {
		Symbol     string   `mapstructure:"symbol"`
		Timeframe  string   `mapstructure:"timeframe"`
		Strategies []string `mapstructure:"strategies"`
		Volume     float64  `mapstructure:"volume"`  // лоты
		SLPips     float64  `mapstructure:"sl_pips"` // 0 = без стопа
		TPPips     float64  `mapstructure:"tp_pips"` // 0 = без тейка
		Deviation  int      `mapstructure:"deviation"`
		Magic      int      `mapstructure:"magic"`
		DryRun     bool     `mapstructure:"dry_run"` // бумажный брокер вместо бриджа
		Autostart  bool     `mapstructure:"autostart"`
	} `mapstructure:"trading"`

	Engine struct {
		HistoryLimit  int    `mapstructure:"history_limit"` // баров прогрева
		BufferCap     int    `mapstructure:"buffer_cap"`    // размер скользящего окна
		LogCap        int    `mapstructure:"log_cap"`       // глубина журнала сигналов
		SelectionFile string `mapstructure:"selection_file"`
	} `mapstructure:"engine"`
}

func NewConfig() (*Config, error) {
	v := viper.New()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local"
	}
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")

	v.SetDefault("bridge.base_http", "http://127.0.0.1:5001")
	v.SetDefault("bridge.base_ws", "ws://127.0.0.1:5001")
	v.SetDefault("service.admin_addr", ":8080")
	v.SetDefault("jaeger.port", 6831)

	v.SetDefault("trading.timeframe", "M1")
	v.SetDefault("trading.strategies", []string{"ema_cross"})
	v.SetDefault("trading.volume", 0.1)
	v.SetDefault("trading.sl_pips", 30.0)
	v.SetDefault("trading.tp_pips", 60.0)
	v.SetDefault("trading.deviation", 20)
	v.SetDefault("trading.magic", 9001)

	v.SetDefault("engine.history_limit", 600)
	v.SetDefault("engine.buffer_cap", 800)
	v.SetDefault("engine.log_cap", 50)
	v.SetDefault("engine.selection_file", "configs/strategy_selection.yaml")

	if err := v.ReadInConfig(); err != nil {
		// без файла едем на дефолтах + env
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if raw := os.Getenv(chatIDTelegramENV); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			config.Telegram.ChatID = id
		}
	}

	return &config, nil
}
