package main

import (
	"os"
	"os/user"
	"strings"
	"sync"

	"reel/internal/api"
	"reel/internal/config"
)

type commandContext struct {
	configFlag *string
	serverFlag *string
	ownerFlag  *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, serverFlag, ownerFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		serverFlag: serverFlag,
		ownerFlag:  ownerFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// serverURL resolves the daemon base URL: the --server flag wins, then the
// configured bind address.
func (c *commandContext) serverURL() (string, error) {
	if c.serverFlag != nil {
		if value := strings.TrimSpace(*c.serverFlag); value != "" {
			if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
				return value, nil
			}
			return "http://" + value, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return "http://" + cfg.Paths.APIBind, nil
}

// owner resolves the acting owner: --owner flag, REEL_OWNER, then the OS
// username.
func (c *commandContext) owner() string {
	if c.ownerFlag != nil {
		if value := strings.TrimSpace(*c.ownerFlag); value != "" {
			return value
		}
	}
	if value := strings.TrimSpace(os.Getenv("REEL_OWNER")); value != "" {
		return value
	}
	if current, err := user.Current(); err == nil && current.Username != "" {
		return current.Username
	}
	return "default"
}

func (c *commandContext) client() (*api.Client, error) {
	base, err := c.serverURL()
	if err != nil {
		return nil, err
	}
	return api.NewClient(base, c.owner()), nil
}

func (c *commandContext) streamClient() (*api.Client, error) {
	base, err := c.serverURL()
	if err != nil {
		return nil, err
	}
	return api.NewStreamClient(base, c.owner()), nil
}
