package zerolog_config

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

var startupLoggerOnce sync.Once

// Options describe where logs go.
type Options struct {
	// AppName is attached to every line as "app".
	AppName string
	// Level is a zerolog level name; unknown or empty means info.
	Level string
	// ElasticsearchURL enables ECS shipping to <url>/<Index>/_doc when set.
	ElasticsearchURL string
	Index            string
	// Console defaults to os.Stdout.
	Console io.Writer
}

// ElasticsearchWriter sends logs directly to Elasticsearch
type ElasticsearchWriter struct {
	URL    string
	Client *http.Client
}

func (ew ElasticsearchWriter) Write(p []byte) (n int, err error) {
	client := ew.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := client.Post(ew.URL+"/_doc", "application/json", bytes.NewBuffer(p))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("elasticsearch returned %d", resp.StatusCode)
	}

	return len(p), nil
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// New builds a logger: pretty console output, plus ECS JSON to Elasticsearch
// when a URL is configured.
func New(opts Options) (zerolog.Logger, error) {
	if opts.AppName == "" {
		return zerolog.Nop(), fmt.Errorf("app name is required")
	}
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	consoleWriter := zerolog.ConsoleWriter{Out: console}

	var out io.Writer = consoleWriter
	if opts.ElasticsearchURL != "" {
		index := opts.Index
		if index == "" {
			index = opts.AppName
		}
		// ECS format for Elasticsearch with semantic endpoint
		ecsLogger := ecszerolog.New(&ElasticsearchWriter{
			URL: strings.TrimSuffix(opts.ElasticsearchURL, "/") + "/" + index,
		})
		out = zerolog.MultiLevelWriter(ecsLogger, consoleWriter)
	}

	return zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Str("app", opts.AppName).
		Timestamp().
		Logger(), nil
}

// StartupWithEnv installs the global logger once per process and returns it.
func StartupWithEnv(opts Options) (zerolog.Logger, error) {
	var err error
	startupLoggerOnce.Do(func() {
		var logger zerolog.Logger
		logger, err = New(opts)
		if err == nil {
			log.Logger = logger
		}
	})
	return log.Logger, err
}
