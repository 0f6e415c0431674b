// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package config carrega e valida a configuração YAML do nstream-copy.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config representa a configuração completa do nstream-copy.
type Config struct {
	Daemon    DaemonInfo      `yaml:"daemon"`
	Logging   LoggingInfo     `yaml:"logging"`
	Stats     StatsInfo       `yaml:"stats"`
	Pipelines []PipelineEntry `yaml:"pipelines"`
}

// DaemonInfo contém as opções do modo daemon.
type DaemonInfo struct {
	RunLogDir string `yaml:"run_log_dir"` // vazio desabilita logs por execução
}

// LoggingInfo contém configurações de logging.
type LoggingInfo struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// StatsInfo contém o intervalo do reporter de métricas do daemon.
type StatsInfo struct {
	Interval time.Duration `yaml:"interval"`
}

// PipelineEntry representa um pipeline nomeado: uma origem, um ou mais
// destinos e os parâmetros de buffer do stream.
type PipelineEntry struct {
	Name     string     `yaml:"name"`
	Schedule string     `yaml:"schedule"` // cron expression (modo daemon)
	Source   SourceInfo `yaml:"source"`
	Sinks    []SinkInfo `yaml:"sinks"`

	ReadSize    string `yaml:"read_size"`     // ex: "16kb" (default)
	ReadSizeRaw int64  `yaml:"-"`             // valor parseado em bytes
	LowWater    string `yaml:"low_water_mark"` // ex: "1kb"; "0" é válido e honrado
	LowWaterRaw int64  `yaml:"-"`
	LowWaterSet bool   `yaml:"-"` // distingue "0" explícito de ausente
	Encoding    string `yaml:"encoding"` // rótulo IANA; vazio = modo binário
}

// SourceInfo descreve a origem de um pipeline.
type SourceInfo struct {
	Type        string `yaml:"type"`        // "file" ou "s3"
	Path        string `yaml:"path"`        // type=file
	Compression string `yaml:"compression"` // "none" (default), "gzip", "zstd"

	// type=s3
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// SinkInfo descreve um destino de um pipeline.
type SinkInfo struct {
	Type        string `yaml:"type"`        // "file", "stdout" ou "s3"
	Path        string `yaml:"path"`        // type=file
	Compression string `yaml:"compression"` // "none" (default), "gzip", "zstd"

	// type=s3
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	BufferSize    string `yaml:"buffer_size"` // fila em memória do sink, ex: "256kb"
	BufferSizeRaw int64  `yaml:"-"`
	RateLimit     string `yaml:"rate_limit"` // bytes/segundo, ex: "1mb"; vazio desabilita
	RateLimitRaw  int64  `yaml:"-"`
}

// Load lê e valida o arquivo YAML de configuração.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Stats.Interval <= 0 {
		c.Stats.Interval = 5 * time.Minute
	}
	if len(c.Pipelines) == 0 {
		return fmt.Errorf("pipelines must have at least one entry")
	}

	for i := range c.Pipelines {
		p := &c.Pipelines[i]
		if p.Name == "" {
			return fmt.Errorf("pipelines[%d].name is required", i)
		}
		if err := p.Source.validate(); err != nil {
			return fmt.Errorf("pipelines[%d].source: %w", i, err)
		}
		if len(p.Sinks) == 0 {
			return fmt.Errorf("pipelines[%d].sinks must have at least one entry", i)
		}
		for j := range p.Sinks {
			if err := p.Sinks[j].validate(); err != nil {
				return fmt.Errorf("pipelines[%d].sinks[%d]: %w", i, j, err)
			}
		}

		if p.ReadSize == "" {
			p.ReadSize = "16kb"
		}
		parsed, err := ParseByteSize(p.ReadSize)
		if err != nil {
			return fmt.Errorf("pipelines[%d].read_size: %w", i, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("pipelines[%d].read_size must be positive, got %s", i, p.ReadSize)
		}
		p.ReadSizeRaw = parsed

		// low_water_mark ausente usa o default do stream; "0" explícito é
		// honrado e desliga o refill antecipado.
		if p.LowWater != "" {
			lw, err := ParseByteSize(p.LowWater)
			if err != nil {
				return fmt.Errorf("pipelines[%d].low_water_mark: %w", i, err)
			}
			if lw < 0 {
				return fmt.Errorf("pipelines[%d].low_water_mark must not be negative, got %s", i, p.LowWater)
			}
			p.LowWaterRaw = lw
			p.LowWaterSet = true
		}
	}

	return nil
}

func (s *SourceInfo) validate() error {
	switch s.Type {
	case "file":
		if s.Path == "" {
			return fmt.Errorf("path is required for file sources")
		}
	case "s3":
		if s.Bucket == "" || s.Key == "" {
			return fmt.Errorf("bucket and key are required for s3 sources")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}
	return validateCompression(s.Compression)
}

func (s *SinkInfo) validate() error {
	switch s.Type {
	case "file":
		if s.Path == "" {
			return fmt.Errorf("path is required for file sinks")
		}
	case "stdout":
	case "s3":
		if s.Bucket == "" || s.Key == "" {
			return fmt.Errorf("bucket and key are required for s3 sinks")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown sink type %q", s.Type)
	}
	if err := validateCompression(s.Compression); err != nil {
		return err
	}

	if s.BufferSize != "" {
		parsed, err := ParseByteSize(s.BufferSize)
		if err != nil {
			return fmt.Errorf("buffer_size: %w", err)
		}
		if parsed <= 0 {
			return fmt.Errorf("buffer_size must be positive, got %s", s.BufferSize)
		}
		s.BufferSizeRaw = parsed
	}
	if s.RateLimit != "" {
		parsed, err := ParseByteSize(s.RateLimit)
		if err != nil {
			return fmt.Errorf("rate_limit: %w", err)
		}
		if parsed <= 0 {
			return fmt.Errorf("rate_limit must be positive, got %s", s.RateLimit)
		}
		s.RateLimitRaw = parsed
	}
	return nil
}

func validateCompression(mode string) error {
	switch mode {
	case "", "none", "gzip", "zstd":
		return nil
	}
	return fmt.Errorf("unknown compression %q", mode)
}

// ParseByteSize converte strings human-readable como "256mb", "1gb" para bytes.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Ordenado do sufixo mais longo para o mais curto
	// para evitar que "mb" matche como "b"
	type suffix struct {
		s string
		m int64
	}
	suffixes := []suffix{
		{"gb", 1024 * 1024 * 1024},
		{"mb", 1024 * 1024},
		{"kb", 1024},
		{"b", 1},
	}

	for _, sfx := range suffixes {
		if strings.HasSuffix(s, sfx.s) {
			numStr := strings.TrimSuffix(s, sfx.s)
			num, err := strconv.ParseInt(numStr, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid number %q: %w", numStr, err)
			}
			return num * sfx.m, nil
		}
	}

	// Tenta interpretar como número puro (bytes)
	num, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown size format %q", s)
	}
	return num, nil
}
