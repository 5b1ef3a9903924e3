package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigLoader 配置加载器
// 优先级: 命令行参数 > 环境变量 > 配置文件 > 默认值
type ConfigLoader struct {
	configFile string
	envPrefix  string
	viper      *viper.Viper
}

// NewConfigLoader 创建配置加载器
// configFile 为空时按默认路径搜索 config.yaml, 找不到文件不算错误
func NewConfigLoader(configFile, envPrefix string) *ConfigLoader {
	if envPrefix == "" {
		envPrefix = "NEORECON"
	}

	return &ConfigLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
		viper:      viper.New(),
	}
}

// BindFlag 将命令行参数绑定到配置键
func (cl *ConfigLoader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("flag for key %s not found", key)
	}
	return cl.viper.BindPFlag(key, flag)
}

// LoadConfig 加载配置
func (cl *ConfigLoader) LoadConfig() (*Config, error) {
	// .env 文件是可选的
	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	cl.viper.SetConfigType("yaml")
	cl.viper.SetEnvPrefix(cl.envPrefix)
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cl.viper.AutomaticEnv()

	cl.setDefaults()

	if err := cl.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := Default()
	if err := cl.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// loadConfigFile 加载配置文件
func (cl *ConfigLoader) loadConfigFile() error {
	if cl.configFile == "" {
		cl.configFile = os.Getenv(cl.envPrefix + "_CONFIG_PATH")
	}

	if cl.configFile != "" {
		// 显式指定的配置文件必须存在
		cl.viper.SetConfigFile(cl.configFile)
		return cl.viper.ReadInConfig()
	}

	cl.viper.AddConfigPath("./configs")
	cl.viper.AddConfigPath(".")
	cl.viper.SetConfigName("config")

	if err := cl.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// setDefaults 设置默认值
func (cl *ConfigLoader) setDefaults() {
	def := Default()

	// 日志默认值
	cl.viper.SetDefault("log.level", def.Log.Level)
	cl.viper.SetDefault("log.format", def.Log.Format)
	cl.viper.SetDefault("log.output", def.Log.Output)
	cl.viper.SetDefault("log.file_path", def.Log.FilePath)
	cl.viper.SetDefault("log.max_size", def.Log.MaxSize)
	cl.viper.SetDefault("log.max_backups", def.Log.MaxBackups)
	cl.viper.SetDefault("log.max_age", def.Log.MaxAge)
	cl.viper.SetDefault("log.compress", def.Log.Compress)
	cl.viper.SetDefault("log.caller", def.Log.Caller)

	// 扫描默认值
	cl.viper.SetDefault("scan.concurrency", def.Scan.Concurrency)
	cl.viper.SetDefault("scan.timeout", def.Scan.Timeout)
	cl.viper.SetDefault("scan.max_attempts", def.Scan.MaxAttempts)
	cl.viper.SetDefault("scan.retry_delay", def.Scan.RetryDelay)
	cl.viper.SetDefault("scan.adaptive", def.Scan.Adaptive)
	cl.viper.SetDefault("scan.rate", def.Scan.Rate)
	cl.viper.SetDefault("scan.batch_size", def.Scan.BatchSize)

	// 服务识别默认值
	cl.viper.SetDefault("probe.enabled", def.Probe.Enabled)
	cl.viper.SetDefault("probe.file", def.Probe.File)
	cl.viper.SetDefault("probe.narrow", def.Probe.Narrow)
	cl.viper.SetDefault("probe.read_timeout", def.Probe.ReadTimeout)
	cl.viper.SetDefault("probe.buffer_size", def.Probe.BufferSize)
	cl.viper.SetDefault("probe.verify", def.Probe.Verify)

	// 输出默认值
	cl.viper.SetDefault("output.format", def.Output.Format)
	cl.viper.SetDefault("output.json_file", def.Output.JSONFile)
	cl.viper.SetDefault("output.csv_file", def.Output.CSVFile)
	cl.viper.SetDefault("output.progress", def.Output.Progress)

	cl.viper.SetDefault("proxy.url", def.Proxy.URL)
}

// Validate 验证配置
func Validate(config *Config) error {
	if config.Scan == nil || config.Probe == nil || config.Output == nil || config.Log == nil {
		return fmt.Errorf("incomplete config")
	}

	if config.Scan.Concurrency <= 0 {
		return fmt.Errorf("invalid concurrency: %d", config.Scan.Concurrency)
	}
	if config.Scan.Timeout <= 0 {
		return fmt.Errorf("invalid connect timeout: %s", config.Scan.Timeout)
	}
	if config.Scan.MaxAttempts < 1 {
		return fmt.Errorf("invalid max attempts: %d", config.Scan.MaxAttempts)
	}
	if config.Scan.Rate < 0 {
		return fmt.Errorf("invalid rate: %d", config.Scan.Rate)
	}
	if config.Probe.BufferSize <= 0 {
		return fmt.Errorf("invalid probe buffer size: %d", config.Probe.BufferSize)
	}
	if config.Probe.ReadTimeout <= 0 {
		return fmt.Errorf("invalid probe read timeout: %s", config.Probe.ReadTimeout)
	}

	switch strings.ToLower(config.Output.Format) {
	case "text", "json", "table":
	default:
		return fmt.Errorf("unsupported output format: %s", config.Output.Format)
	}

	return nil
}

// GetConfigPath 获取实际使用的配置文件路径
func (cl *ConfigLoader) GetConfigPath() string {
	return cl.viper.ConfigFileUsed()
}
