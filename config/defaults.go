package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: GetDefaultDataDir(),
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Relay: RelayConfig{
			DefaultProvider: DefaultProviderID,
			RequestTimeout:  "120s",
			MaxAttachmentMB: 20,
			MaxRequestMB:    64,
			Journal:         false,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8787",
			WSPath: "/ws",
		},
		Providers: DefaultProviders(),
	}
}

func GenerateSystemConfigTemplate(dataDir string) string {
	return `# OpenDocs System Configuration
# Location: ~/.config/opendocs/settings.toml
# This file uses TOML format: https://toml.io

# Directory where the user config, journal and debug log are stored
# (single quotes keep Windows backslashes literal)
data_directory = '` + dataDir + `'

`
}

func GenerateUserConfigTemplate() string {
	return `# OpenDocs Relay Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Default custom instructions appended to the document system prompt (optional)
custom_instructions = ""

[relay]
# Provider used when a request does not name one: gemini, anthropic, openai, openrouter, ollama
default_provider = "gemini"

# Model used when a request does not name one (empty = provider default)
# default_model = "gemini-2.0-flash-lite"

# Upper bound for one exchange, including the whole streamed reply
request_timeout = "120s"

# Documents larger than this are not attached to the conversation
max_attachment_mb = 20

# Largest single request the UI may send, conversation and page text included.
# Larger requests are answered with an error and the connection stays open.
max_request_mb = 64

# Record exchange metadata (never message content) in journal.db
journal = false

[server]
# WebSocket transport for UIs that do not spawn the relay over stdio
listen = "127.0.0.1:8787"
ws_path = "/ws"

[[providers]]
id = "gemini"
enabled = true

[[providers]]
id = "anthropic"
enabled = true

[[providers]]
id = "openai"
enabled = true

[[providers]]
id = "openrouter"
base_url = "https://openrouter.ai/api/v1"
enabled = true

[[providers]]
id = "ollama"
base_url = "http://localhost:11434"
enabled = true
`
}
