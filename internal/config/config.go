package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "NOTEBOOKSYNC_CONFIG"
	databasePathEnv   = "DATABASE_PATH"
	profileAPIURLEnv  = "PROFILE_API_URL"
	workspaceURLEnv   = "WORKSPACE_URL"
	logLevelEnv       = "LOG_LEVEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// DefaultInstruction is the briefing request sent to the remote summarizer for every source.
const DefaultInstruction = `Create a comprehensive briefing document that synthesizes the main themes and ideas from the sources.
Start with a concise Executive Summary that presents the most critical takeaways upfront.
The body of the document must provide a detailed and thorough examination of the main themes, evidence, and conclusions found in the sources.
This analysis should be structured logically with headings and bullet points to ensure clarity.
The tone must be objective and incisive.

Write all sources in summary and source link to original article/video`

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Profiles      ProfilesConfig     `yaml:"profiles"`
	Browser       BrowserConfig      `yaml:"browser"`
	Workspace     WorkspaceConfig    `yaml:"workspace"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Selectors     SelectorConfig     `yaml:"selectors"`
	Schedule      ScheduleConfig     `yaml:"schedule"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the SQLite store.
type DatabaseConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

// ProfilesConfig points at the local profile control API.
type ProfilesConfig struct {
	APIURL         string        `yaml:"apiUrl"`
	LaunchArgs     []string      `yaml:"launchArgs"`
	Headless       bool          `yaml:"headless"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// BrowserConfig tunes the CDP connection.
type BrowserConfig struct {
	SlowMoMin               time.Duration `yaml:"slowMoMin"`
	SlowMoMax               time.Duration `yaml:"slowMoMax"`
	NavigationTimeout       time.Duration `yaml:"navigationTimeout"`
	SystemClipboardFallback bool          `yaml:"systemClipboardFallback"`
}

// WorkspaceConfig identifies the remote notebook.
type WorkspaceConfig struct {
	BaseURL string `yaml:"baseUrl"`
	ID      string `yaml:"id"`
}

// URL joins the base URL with the workspace identifier.
func (w WorkspaceConfig) URL() string {
	if w.ID == "" {
		return w.BaseURL
	}
	return strings.TrimSuffix(w.BaseURL, "/") + "/notebook/" + strings.TrimPrefix(w.ID, "/")
}

// PipelineConfig carries the instruction text and pacing constants.
type PipelineConfig struct {
	InstructionTemplate string        `yaml:"instructionTemplate"`
	SettleDelay         time.Duration `yaml:"settleDelay"`
	PollInterval        time.Duration `yaml:"pollInterval"`
	CompletionTimeout   time.Duration `yaml:"completionTimeout"`
	SubmitTimeout       time.Duration `yaml:"submitTimeout"`
	VisibleTimeout      time.Duration `yaml:"visibleTimeout"`
	ClipboardSettle     time.Duration `yaml:"clipboardSettle"`
	InteractionDelayMin time.Duration `yaml:"interactionDelayMin"`
	InteractionDelayMax time.Duration `yaml:"interactionDelayMax"`
	ClickRadius         float64       `yaml:"clickRadius"`
}

// SelectorConfig lists the CSS selectors of the remote workspace UI.
// SelectAll and ChatPanel are optional: an explicit empty value disables
// the selection reset and the result panel scroll.
type SelectorConfig struct {
	SelectAll    string `yaml:"selectAll"`
	SourceRow    string `yaml:"sourceRow"`
	SourceTitle  string `yaml:"sourceTitle"`
	SourceToggle string `yaml:"sourceToggle"`
	Prompt       string `yaml:"prompt"`
	Submit       string `yaml:"submit"`
	Loading      string `yaml:"loading"`
	ChatPanel    string `yaml:"chatPanel"`
	CopyButton   string `yaml:"copyButton"`

	selectAllSet bool
	chatPanelSet bool
}

// UnmarshalYAML records which optional selectors the file sets, empty or not.
func (s *SelectorConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain SelectorConfig
	if err := node.Decode((*plain)(s)); err != nil {
		return err
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "selectAll":
			s.selectAllSet = true
		case "chatPanel":
			s.chatPanelSet = true
		}
	}
	return nil
}

// ScheduleConfig enables watch mode when Interval is positive.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads the YAML file named by NOTEBOOKSYNC_CONFIG (if set) and applies environment overrides.
func Load() Config {
	return LoadPath(os.Getenv(configPathEnv))
}

// LoadPath reads YAML configuration from path (if non-empty) and applies environment overrides.
func LoadPath(path string) Config {
	cfg := Default()

	if path != "" {
		if fileCfg, err := LoadFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// LoadFile parses a YAML file without applying defaults.
func LoadFile(path string) (Config, error) {
	var fileCfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileCfg, err
	}
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return fileCfg, err
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(profileAPIURLEnv); v != "" {
		c.Profiles.APIURL = v
	}
	if v := os.Getenv(workspaceURLEnv); v != "" {
		c.Workspace.BaseURL = v
		c.Workspace.ID = ""
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	setString(&base.Logging.Level, override.Logging.Level)

	setString(&base.Database.Path, override.Database.Path)
	setInt(&base.Database.MaxOpenConns, override.Database.MaxOpenConns)

	setString(&base.Profiles.APIURL, override.Profiles.APIURL)
	if len(override.Profiles.LaunchArgs) > 0 {
		base.Profiles.LaunchArgs = override.Profiles.LaunchArgs
	}
	base.Profiles.Headless = base.Profiles.Headless || override.Profiles.Headless
	setDuration(&base.Profiles.RequestTimeout, override.Profiles.RequestTimeout)

	setDuration(&base.Browser.SlowMoMin, override.Browser.SlowMoMin)
	setDuration(&base.Browser.SlowMoMax, override.Browser.SlowMoMax)
	setDuration(&base.Browser.NavigationTimeout, override.Browser.NavigationTimeout)
	base.Browser.SystemClipboardFallback = base.Browser.SystemClipboardFallback || override.Browser.SystemClipboardFallback

	setString(&base.Workspace.BaseURL, override.Workspace.BaseURL)
	setString(&base.Workspace.ID, override.Workspace.ID)

	p, o := &base.Pipeline, override.Pipeline
	setString(&p.InstructionTemplate, o.InstructionTemplate)
	setDuration(&p.SettleDelay, o.SettleDelay)
	setDuration(&p.PollInterval, o.PollInterval)
	setDuration(&p.CompletionTimeout, o.CompletionTimeout)
	setDuration(&p.SubmitTimeout, o.SubmitTimeout)
	setDuration(&p.VisibleTimeout, o.VisibleTimeout)
	setDuration(&p.ClipboardSettle, o.ClipboardSettle)
	setDuration(&p.InteractionDelayMin, o.InteractionDelayMin)
	setDuration(&p.InteractionDelayMax, o.InteractionDelayMax)
	if o.ClickRadius > 0 {
		p.ClickRadius = o.ClickRadius
	}

	s, so := &base.Selectors, override.Selectors
	setOptional(&s.SelectAll, so.SelectAll, so.selectAllSet)
	setString(&s.SourceRow, so.SourceRow)
	setString(&s.SourceTitle, so.SourceTitle)
	setString(&s.SourceToggle, so.SourceToggle)
	setString(&s.Prompt, so.Prompt)
	setString(&s.Submit, so.Submit)
	setString(&s.Loading, so.Loading)
	setOptional(&s.ChatPanel, so.ChatPanel, so.chatPanelSet)
	setString(&s.CopyButton, so.CopyButton)

	setDuration(&base.Schedule.Interval, override.Schedule.Interval)

	setString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	setString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)

	return base
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setOptional(dst *string, v string, set bool) {
	if set {
		*dst = v
		return
	}
	setString(dst, v)
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "sources.db"},
		Profiles: ProfilesConfig{
			APIURL: "http://127.0.0.1:50325",
			LaunchArgs: []string{
				"--disable-blink-features=AutomationControlled",
				"--disable-popup-blocking",
				"--disable-default-apps",
				"--disable-translate",
				"--disable-features=TranslateUI",
			},
			RequestTimeout: 60 * time.Second,
		},
		Browser: BrowserConfig{
			SlowMoMin:         2 * time.Second,
			SlowMoMax:         3 * time.Second,
			NavigationTimeout: 60 * time.Second,
		},
		Workspace: WorkspaceConfig{BaseURL: "https://notebooklm.google.com"},
		Pipeline: PipelineConfig{
			InstructionTemplate: DefaultInstruction,
			SettleDelay:         60 * time.Second,
			PollInterval:        time.Second,
			CompletionTimeout:   2 * time.Minute,
			SubmitTimeout:       30 * time.Second,
			VisibleTimeout:      50 * time.Second,
			ClipboardSettle:     time.Second,
			InteractionDelayMin: time.Second,
			InteractionDelayMax: 2 * time.Second,
		},
		Selectors: SelectorConfig{
			SelectAll:    `input[type="checkbox"][id="mat-mdc-checkbox-0-input"]`,
			SourceRow:    "div.single-source-container",
			SourceTitle:  `div[aria-label="Source title"]`,
			SourceToggle: "input",
			Prompt:       "textarea.cdk-textarea-autosize",
			Submit:       "query-box > div > div > form > div > button",
			Loading:      "div.loading-dots",
			ChatPanel:    "div.chat-panel-content",
			CopyButton:   "button.xap-copy-to-clipboard",
		},
	}
}
