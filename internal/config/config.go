package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

// Config 聚合门户客户端的配置项。
type Config struct {
	Remote  RemoteConfig
	Persona PersonaConfig
	Audio   AudioConfig
	UI      UIConfig
	Stub    StubConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	remote, err := loadRemoteConfig()
	if err != nil {
		return nil, err
	}

	audio, err := loadAudioConfig()
	if err != nil {
		return nil, err
	}

	ui, err := loadUIConfig()
	if err != nil {
		return nil, err
	}

	stub, err := loadStubConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Remote:  remote,
		Persona: loadPersonaConfig(),
		Audio:   audio,
		UI:      ui,
		Stub:    stub,
	}, nil
}

// RemoteConfig 描述三个协作端点。
type RemoteConfig struct {
	BaseURL        string
	ChatPath       string
	TranscribePath string
	SpeechPath     string
	Timeout        time.Duration // zero leaves requests bounded only by their context
}

// ChatURL 返回聊天补全端点地址。
func (c RemoteConfig) ChatURL() string { return joinURL(c.BaseURL, c.ChatPath) }

// TranscribeURL 返回语音识别端点地址。
func (c RemoteConfig) TranscribeURL() string { return joinURL(c.BaseURL, c.TranscribePath) }

// SpeechURL 返回语音合成端点地址。
func (c RemoteConfig) SpeechURL() string { return joinURL(c.BaseURL, c.SpeechPath) }

func loadRemoteConfig() (RemoteConfig, error) {
	baseURL := getEnvOrDefault("PORTAL_BASE_URL", "http://localhost:3000")
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return RemoteConfig{}, fmt.Errorf("invalid PORTAL_BASE_URL value: %q", baseURL)
	}

	timeout, err := parseDurationEnv("PORTAL_HTTP_TIMEOUT", 0)
	if err != nil {
		return RemoteConfig{}, err
	}

	return RemoteConfig{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		ChatPath:       getEnvOrDefault("PORTAL_CHAT_PATH", "/api/chat"),
		TranscribePath: getEnvOrDefault("PORTAL_TRANSCRIBE_PATH", "/api/speech"),
		SpeechPath:     getEnvOrDefault("PORTAL_SPEECH_PATH", "/api/speech"),
		Timeout:        timeout,
	}, nil
}

// PersonaConfig 选择要召唤的角色。
type PersonaConfig struct {
	ID   string
	File string
}

func loadPersonaConfig() PersonaConfig {
	return PersonaConfig{
		ID:   getEnvOrDefault("PORTAL_PERSONA", "revenant"),
		File: getEnvOrDefault("PORTAL_PERSONA_FILE", ""),
	}
}

// AudioConfig 描述录音与播放使用的外部命令。
type AudioConfig struct {
	RecordCommand []string
	PlayCommand   []string
	AutoSpeak     bool
}

// 命令按 shell 规则切分，参数中的空格需加引号，例如 -i "alsa_input.usb mic"。
var (
	defaultRecordCommand = "ffmpeg -hide_banner -loglevel error -f pulse -i default -c:a libopus -f webm pipe:1"
	defaultPlayCommand   = "ffplay -nodisp -autoexit -loglevel error"
)

func loadAudioConfig() (AudioConfig, error) {
	autoSpeak, err := parseBoolEnv("PORTAL_AUTO_SPEAK", false)
	if err != nil {
		return AudioConfig{}, err
	}

	record, err := parseCommandEnv("PORTAL_RECORD_COMMAND", defaultRecordCommand)
	if err != nil {
		return AudioConfig{}, err
	}
	play, err := parseCommandEnv("PORTAL_PLAY_COMMAND", defaultPlayCommand)
	if err != nil {
		return AudioConfig{}, err
	}

	return AudioConfig{
		RecordCommand: record,
		PlayCommand:   play,
		AutoSpeak:     autoSpeak,
	}, nil
}

// UIConfig 终端界面配置
type UIConfig struct {
	LogFile   string
	AltScreen bool
}

func loadUIConfig() (UIConfig, error) {
	altScreen, err := parseBoolEnv("PORTAL_ALT_SCREEN", true)
	if err != nil {
		return UIConfig{}, err
	}

	return UIConfig{
		LogFile:   getEnvOrDefault("PORTAL_LOG_FILE", "portal.log"),
		AltScreen: altScreen,
	}, nil
}

// StubConfig 描述本地协作方桩服务的监听地址。
type StubConfig struct {
	Addr  string
	Reply string
	Text  string
}

// loadStubConfig 解析桩服务监听地址。
func loadStubConfig() (StubConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3000"
	}

	addr := ":" + port
	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":3000" 或 "127.0.0.1:3000"。
		addr = port
	} else if strings.Contains(port, " ") {
		return StubConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return StubConfig{
		Addr:  addr,
		Reply: getEnvOrDefault("STUB_REPLY", ""),
		Text:  getEnvOrDefault("STUB_TRANSCRIPT", "ping"),
	}, nil
}

func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// parseCommandEnv splits a command line with shell quoting rules.
func parseCommandEnv(key, defaultValue string) ([]string, error) {
	raw := getEnvOrDefault(key, defaultValue)
	argv, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return argv, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseDurationEnv 支持 "30s" 这样的时长，也兼容纯数字（按秒计）。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if seconds, err := parseOptionalIntEnv(key); err == nil && seconds != nil {
		if *seconds < 0 {
			return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
		}
		return time.Duration(*seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}
