package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/emersion/go-webdav"
	"github.com/sirupsen/logrus"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const filesEndpoint = "/remote.php/dav/files/"

var errIsDirectory = errors.New("remote path is a directory")

// VerifyService checks a remote path over WebDAV before anything is shared.
type VerifyService interface {
	Stat(ctx context.Context, remotePath string) (*webdav.FileInfo, error)
}

type verifyService struct {
	client *webdav.Client
}

func NewVerifyService(baseURL, username, password string, timeout time.Duration) (VerifyService, error) {
	endpoint := strings.TrimRight(baseURL, "/") + filesEndpoint + url.PathEscape(username)
	httpClient := webdav.HTTPClientWithBasicAuth(&http.Client{Timeout: timeout}, username, password)
	client, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("cannot create WebDAV client: %w", err)
	}
	return &verifyService{client: client}, nil
}

func (v verifyService) Stat(ctx context.Context, remotePath string) (*webdav.FileInfo, error) {
	// relative, so it resolves under the user's files endpoint
	fi, err := v.client.Stat(ctx, strings.TrimPrefix(remotePath, "/"))
	if err != nil {
		// *url.Error means no answer from the server; anything else is the server refusing the path
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, &NetworkError{Err: err}
		}
		return nil, &InvalidPathError{Path: remotePath, Err: fmt.Errorf("cannot stat remote file: %w", err)}
	}
	if fi.IsDir {
		return nil, &InvalidPathError{Path: remotePath, Err: errIsDirectory}
	}
	logrus.Debugf("remote file %s exists (%d bytes, %s)", fi.Path, fi.Size, fi.MIMEType)
	return fi, nil
}
