package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"appdl/internal/apiclient"
	"appdl/internal/config"
)

type globalFlags struct {
	config string
	api    string
	token  string
	json   bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		if exists {
			c.configPath = path
		}
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.flags != nil && c.flags.json
}

// client builds an API client from flags, falling back to config values.
func (c *commandContext) client() (*apiclient.Client, error) {
	bind := strings.TrimSpace(c.flags.api)
	token := strings.TrimSpace(c.flags.token)
	if bind == "" || token == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return nil, err
		}
		if bind == "" {
			bind = cfg.Paths.APIBind
		}
		if token == "" {
			token = cfg.Paths.APIToken
		}
	}
	return apiclient.New(bind, token)
}

func (c *commandContext) withClient(fn func(*apiclient.Client) error) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	return wrapClientError(fn(client))
}

func wrapClientError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apiclient.ErrAPIUnavailable) {
		return fmt.Errorf("%w; start it with `appdl daemon`", err)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
