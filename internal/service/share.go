package service

import (
	"context"
	"fmt"
	"github.com/nonvenomous/nextcloud-video-tag-cli/internal/dto"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

const videoWidth = 300

type ShareService interface {
	// Share creates a public link for the file behind localPath and returns a <video> tag for it.
	Share(ctx context.Context, localPath string, cfg dto.Config) (string, error)
}

type shareService struct {
	pathService  PathService
	showProgress bool
}

func newShareService(pathService PathService, showProgress bool) ShareService {
	return &shareService{
		pathService:  pathService,
		showProgress: showProgress,
	}
}

func (s shareService) Share(ctx context.Context, localPath string, cfg dto.Config) (string, error) {
	if err := Validate(cfg); err != nil {
		return "", err
	}

	logrus.Info("Parsing Nautilus WebDAV file path...")
	remotePath, err := s.pathService.Remote(localPath)
	if err != nil {
		return "", err
	}
	logrus.Infof("Remote file path obtained: %s", remotePath)

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = BaseURL(cfg.Domain)
	}

	if cfg.Verify {
		logrus.Info("Checking remote file...")
		verifier, err := NewVerifyService(endpoint, cfg.Username, cfg.Password, cfg.Timeout)
		if err != nil {
			return "", err
		}
		if _, err := verifier.Stat(ctx, remotePath); err != nil {
			return "", err
		}
	}

	logrus.Info("Creating share link...")
	stop := s.spin("creating share link")
	share, err := NewNextcloudService(endpoint, cfg.Timeout, cfg.Retries).CreateShare(ctx, dto.ShareRequest{
		Path:          remotePath,
		Username:      cfg.Username,
		Password:      cfg.Password,
		SharePassword: cfg.SharePassword,
		Label:         ShareLabel,
	})
	stop()
	if err != nil {
		return "", err
	}
	logrus.Infof("Share token received: %s", share.Token)

	logrus.Info("Constructing direct download link...")
	link := DownloadURL(cfg.Domain, share.Token, remotePath)
	logrus.Infof("Direct download link: %s", link)

	logrus.Info("Generating <video> tag...")
	return VideoTag(link), nil
}

// spin shows an indeterminate spinner on stderr until the returned func is called.
func (s shareService) spin(description string) func() {
	if !s.showProgress {
		return func() {}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// DownloadURL is the direct download address of a public share.
func DownloadURL(domain, token, remotePath string) string {
	return fmt.Sprintf("https://%s/s/%s/download/%s", domain, token, EncodeComponent(path.Base(remotePath)))
}

func VideoTag(src string) string {
	return fmt.Sprintf(`<video src="%s" controls width="%d"></video>`, src, videoWidth)
}

// EncodeComponent percent-encodes everything except A-Z a-z 0-9 - _ . ~
// so the result is safe both as a path segment and inside an HTML attribute.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
