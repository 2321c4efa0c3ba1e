package service

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/manifoldco/promptui"
	"github.com/nonvenomous/nextcloud-video-tag-cli/internal/dto"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	EnvUsername      = "NEXTCLOUD_USERNAME"
	EnvPassword      = "NEXTCLOUD_PASSWORD"
	EnvDomain        = "NEXTCLOUD_DOMAIN"
	EnvSharePassword = "SHARE_PASSWORD"

	defaultTimeout = 30 * time.Second
	configName     = ".videotag.yaml"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type ConfigService interface {
	// Load merges the yaml file at path (if any) with the variables returned by lookup.
	Load(path string, lookup LookupFunc) (dto.Config, error)
	Configure(path string) error
	DefaultPath() string
}

type configService struct {
}

func newConfigService() ConfigService {
	return &configService{}
}

func (configService) DefaultPath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		logrus.Debugf("cannot get user home directory: %v", err)
		return configName
	}
	return filepath.Join(homedir, configName)
}

// EnvLookup reads the process environment after loading a .env file from the
// working directory. Variables already set are never overridden.
func EnvLookup() LookupFunc {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("loaded variables from .env")
	}
	return os.LookupEnv
}

func (c configService) Load(path string, lookup LookupFunc) (dto.Config, error) {
	cfg := dto.Config{Timeout: defaultTimeout}

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logrus.Debugf("no config file at %s", path)
		case err != nil:
			return cfg, fmt.Errorf("cannot open config file: %w", err)
		default:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return cfg, fmt.Errorf("cannot parse config file %s: %w", path, err)
			}
		}
	}

	env := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	if v := env(EnvUsername); v != "" {
		cfg.Username = v
	}
	if v := env(EnvDomain); v != "" {
		cfg.Domain = v
	}
	cfg.Password, _ = lookup(EnvPassword)
	cfg.SharePassword, _ = lookup(EnvSharePassword)

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return cfg, nil
}

// Validate reports every required setting that is empty.
func Validate(cfg dto.Config) error {
	var missing []string
	if cfg.Username == "" {
		missing = append(missing, EnvUsername)
	}
	if cfg.Password == "" {
		missing = append(missing, EnvPassword)
	}
	if cfg.Domain == "" {
		missing = append(missing, EnvDomain)
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Missing: missing}
	}
	return nil
}

func (configService) Configure(path string) error {
	if _, err := os.Stat(path); err == nil {
		overwritePrompt := promptui.Prompt{
			Label:     fmt.Sprintf("%s already exists, overwrite it", path),
			IsConfirm: true,
		}
		if _, err := overwritePrompt.Run(); err != nil {
			logrus.Info("keeping existing configuration")
			return nil
		}
	}

	logrus.Info("password and share password are read from the environment only and are never written to disk")

	domainPrompt := promptui.Prompt{
		Label: "Nextcloud domain (e.g. cloud.example.com)",
		Validate: func(s string) error {
			if s == "" || strings.Contains(s, "/") {
				return fmt.Errorf("invalid domain")
			}
			return nil
		},
	}
	domain, err := domainPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed %w", err)
	}

	usernamePrompt := promptui.Prompt{
		Label: "Nextcloud username (leave empty to use " + EnvUsername + ")",
	}
	username, err := usernamePrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed %w", err)
	}

	timeoutPrompt := promptui.Prompt{
		Label:   "Request timeout",
		Default: defaultTimeout.String(),
		Validate: func(s string) error {
			d, err := time.ParseDuration(s)
			if err != nil || d <= 0 {
				return fmt.Errorf("invalid duration")
			}
			return nil
		},
	}
	timeout, err := timeoutPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed %w", err)
	}

	retriesPrompt := promptui.Prompt{
		Label:   "Retries after a failed request",
		Default: "0",
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid number")
			}
			return nil
		},
	}
	retries, err := retriesPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed %w", err)
	}

	verifyPrompt := promptui.Select{
		Label: "Check that the file exists before sharing",
		Items: []string{"no", "yes"},
	}
	_, verify, err := verifyPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed %w", err)
	}

	cfg := dto.Config{
		Domain:   strings.TrimSpace(domain),
		Username: strings.TrimSpace(username),
		Verify:   verify == "yes",
	}
	cfg.Timeout, _ = time.ParseDuration(timeout)
	cfg.Retries, _ = strconv.Atoi(retries)

	if err := Save(path, cfg); err != nil {
		return err
	}
	logrus.Infof("configuration saved to %s", path)
	return nil
}

// Save writes the non-secret part of cfg to path.
func Save(path string, cfg dto.Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cannot create config file: %w", err)
	}
	defer f.Close()

	marshaledYaml, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if _, err := f.Write(marshaledYaml); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}
