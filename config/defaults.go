package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/lynkd",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Local: LocalConfig{
			Host: "http://localhost:11434",
		},
		Security: SecurityConfig{
			Method: string(SecurityPlainText),
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# LYNKD System Configuration
# Location: ~/.config/lynkd/settings.toml
# This file uses TOML format: https://toml.io

# Directory where connections, credentials and user config are stored
data_directory = "~/.local/share/lynkd"
`
}

func GenerateUserConfigTemplate() string {
	return `# LYNKD User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[local]
# Ollama server URL used by local connections
host = "http://localhost:11434"

[security]
# Credential storage: "plaintext" or "ssh_key"
method = "plaintext"

# Private key used to encrypt credentials when method = "ssh_key"
ssh_key_path = ""
`
}
