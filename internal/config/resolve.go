package config

// CLIOverrides holds values from command-line flags. Flags always win over
// environment variables and the config file.
type CLIOverrides struct {
	ConfigPath string
}

// Resolve loads configuration applying the override chain:
// defaults -> config file -> environment -> CLI flags.
// The precedence order ensures CLI flags always win, matching user
// expectations for one-off overrides without editing the config file.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	if cfgPath == "" {
		return DefaultConfig(), nil
	}

	return LoadOrDefault(cfgPath)
}
