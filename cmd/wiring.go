// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vendorbridge/cli/internal/bridge/httpclient"
	"vendorbridge/cli/internal/bridge/model"
	"vendorbridge/cli/internal/config"
	"vendorbridge/cli/internal/keychain"
	"vendorbridge/cli/internal/proxy"
	"vendorbridge/cli/internal/session"
	"vendorbridge/cli/internal/vendor"
)

var (
	flagServer     string
	flagServerArgs []string
	flagProfile    string
	flagProfiles   string
)

// addResourceFlags registers the flags naming the fronted server.
func addResourceFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagServer, "server", "", "Name of the server the orchestrator bridges to")
	c.Flags().StringArrayVar(&flagServerArgs, "server-arg", nil, "Server argument as key=value (repeatable)")
	c.Flags().StringVar(&flagProfile, "profile", "", "Resource profile from profiles.yaml")
	c.Flags().StringVar(&flagProfiles, "profiles", "", "Path to profiles.yaml (default in the config dir)")
}

// resolveResource builds the resource from --profile, then applies --server
// and --server-arg on top of it.
func resolveResource() (model.Resource, error) {
	res := model.Resource{Args: map[string]any{}}
	if flagProfile != "" {
		profiles, err := config.LoadProfiles(flagProfiles)
		if err != nil {
			return res, err
		}
		p, err := profiles.Get(flagProfile)
		if err != nil {
			return res, err
		}
		res.Name = p.Server
		for k, v := range p.Args {
			res.Args[k] = v
		}
	}
	if flagServer != "" {
		res.Name = flagServer
	}
	args, err := parseServerArgs(flagServerArgs)
	if err != nil {
		return res, err
	}
	for k, v := range args {
		res.Args[k] = v
	}
	if res.Name == "" {
		return res, errors.New("no server selected: pass --server or --profile")
	}
	return res, nil
}

// parseServerArgs decodes key=value pairs. Values that parse as JSON
// (numbers, booleans, objects) keep their type; anything else is a string.
func parseServerArgs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --server-arg %q: want key=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil && decoded != nil {
			out[k] = decoded
			continue
		}
		out[k] = v
	}
	return out, nil
}

// resolveAPIKey returns the first key found in --api-key, the environment
// and the OS keychain. An empty key means unauthenticated calls.
func resolveAPIKey() string {
	if flagAPIKey != "" {
		return flagAPIKey
	}
	if v := config.APIKeyFromEnv(); v != "" {
		return v
	}
	km, err := keychain.GetManager()
	if err != nil {
		logger.Debug("keychain unavailable", zap.Error(err))
		return ""
	}
	key, err := km.LoadAPIKey()
	if err != nil && !errors.Is(err, keychain.ErrNotFound) {
		logger.Debug("keychain read failed", zap.Error(err))
	}
	return key
}

func newClient() *httpclient.Client {
	return httpclient.New(cfg.CloudURL,
		httpclient.WithAPIKey(resolveAPIKey()),
		httpclient.WithLogger(logger.Named("orchestrator")),
		httpclient.WithTimeout(cfg.RequestTimeout()),
	)
}

func newDispatcher() (*vendor.Dispatcher, *session.Registry) {
	reg := session.NewRegistry(session.WithLogger(logger.Named("session")))
	d := vendor.New(reg,
		vendor.WithLogger(logger.Named("vendor")),
		vendor.WithTimeout(cfg.OperationTimeout()),
		vendor.WithBrowserDefaults(cfg.Browser.Kind, cfg.Browser.Headless),
	)
	return d, reg
}

// newProxy assembles the proxy core for res. The caller must close the
// returned registry.
func newProxy(res model.Resource) (*proxy.Proxy, *session.Registry) {
	d, reg := newDispatcher()
	return proxy.New(newClient(), d, res, logger.Named("proxy")), reg
}

// closeSessions releases every session, bounded so a hung driver cannot
// block exit.
func closeSessions(reg *session.Registry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := reg.CloseAll(ctx); err != nil {
		logger.Warn("closing sessions", zap.Error(err))
	}
}
