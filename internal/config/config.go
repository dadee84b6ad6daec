package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Content struct {
		BaseURL string `yaml:"base_url"`
		Website string `yaml:"website"`
	} `yaml:"content"`
	Quiz struct {
		SessionTimeout string `yaml:"session_timeout"`
		ReapInterval   string `yaml:"reap_interval"`
	} `yaml:"quiz"`
	Timing struct {
		TempMessage        string `yaml:"temp_message"`
		AnswerFeedback     string `yaml:"answer_feedback"`
		QuestionTransition string `yaml:"question_transition"`
		FinalResult        string `yaml:"final_result"`
	} `yaml:"timing"`
}

// Load reads YAML config from path. A missing file yields a zero config so
// every setting falls back to its default.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or
// invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
