package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Load 从 YAML 文件加载配置，填充默认值，展开密钥中的环境变量并校验。
func Load(file string) (Config, error) {
	var c Config
	b, err := os.ReadFile(file)
	if err != nil {
		return c, err
	}
	return Parse(b)
}

// Parse 解析 YAML 内容。
func Parse(b []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	c.applyDefaults()
	c.Trigger.APIKey = os.ExpandEnv(c.Trigger.APIKey)
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// MustLoad 从 YAML 文件加载配置（失败 panic）。
func MustLoad(file string) Config {
	c, err := Load(file)
	if err != nil {
		panic(err)
	}
	return c
}
