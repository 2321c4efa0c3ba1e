package service

import (
	"context"
	"fmt"
	"github.com/bytedance/sonic"
	"github.com/nonvenomous/nextcloud-video-tag-cli/internal/dto"
	"github.com/sirupsen/logrus"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	sharesEndpoint = "/ocs/v2.php/apps/files_sharing/api/v1/shares"

	shareTypePublicLink = "3"
	permissionRead      = "1"

	// ShareLabel is attached to every share so they can be told apart in the web UI.
	ShareLabel = "nextcloud-video-tag-cli"
)

var retryDelay = 500 * time.Millisecond

type NextcloudService interface {
	CreateShare(ctx context.Context, req dto.ShareRequest) (dto.ShareResult, error)
}

type nextcloudService struct {
	client  *http.Client
	baseURL string
	retries int
}

// NewNextcloudService talks to baseURL (scheme and host, no trailing slash).
// retries is the number of extra attempts after a transport failure or 5xx response.
func NewNextcloudService(baseURL string, timeout time.Duration, retries int) NextcloudService {
	if retries < 0 {
		retries = 0
	}
	return &nextcloudService{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		retries: retries,
	}
}

// BaseURL is the https origin of a Nextcloud domain.
func BaseURL(domain string) string {
	return "https://" + domain
}

func (n nextcloudService) CreateShare(ctx context.Context, req dto.ShareRequest) (dto.ShareResult, error) {
	params := url.Values{}
	params.Set("path", req.Path)
	params.Set("shareType", shareTypePublicLink)
	params.Set("permissions", permissionRead)
	label := req.Label
	if label == "" {
		label = ShareLabel
	}
	params.Set("label", label)
	if req.SharePassword != "" {
		params.Set("password", req.SharePassword)
	}
	body := params.Encode()

	var (
		resp *http.Response
		err  error
	)
	for tryNum := 0; tryNum <= n.retries; tryNum++ {
		if tryNum > 0 {
			logrus.Debugf("retrying share request (%d/%d) after: %v", tryNum, n.retries, err)
			select {
			case <-ctx.Done():
				return dto.ShareResult{}, &NetworkError{Err: ctx.Err()}
			case <-time.After(retryDelay):
			}
		}
		resp, err = n.post(ctx, req, body)
		if err == nil && resp.StatusCode < http.StatusInternalServerError {
			break
		}
		if err == nil && tryNum < n.retries {
			resp.Body.Close()
			err = &NetworkError{Status: resp.Status, StatusCode: resp.StatusCode}
		}
	}
	if err != nil {
		return dto.ShareResult{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dto.ShareResult{}, &NetworkError{Status: resp.Status, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return dto.ShareResult{}, &NetworkError{Err: fmt.Errorf("cannot read response body: %w", err)}
	}

	var envelope dto.OCSResponse
	if err := sonic.Unmarshal(data, &envelope); err != nil {
		// a login page or proxy error answered instead of Nextcloud
		return dto.ShareResult{}, &NetworkError{Status: resp.Status, StatusCode: resp.StatusCode, Err: fmt.Errorf("cannot decode OCS response: %w", err)}
	}

	meta := envelope.OCS.Meta
	if meta.StatusCode != 100 && meta.StatusCode != 200 {
		return dto.ShareResult{}, &ShareCreationError{Code: meta.StatusCode, Message: meta.Message}
	}

	var share dto.OCSShare
	if len(envelope.OCS.Data) > 0 {
		if err := sonic.Unmarshal(envelope.OCS.Data, &share); err != nil {
			return dto.ShareResult{}, &ShareCreationError{Code: meta.StatusCode, Message: fmt.Sprintf("cannot decode share data: %v", err)}
		}
	}
	if share.Token == "" {
		return dto.ShareResult{}, &ShareCreationError{Code: meta.StatusCode, Message: "server returned no share token"}
	}
	logrus.Debugf("created share %s for %s", share.URL, req.Path)

	return dto.ShareResult{Token: share.Token, URL: share.URL}, nil
}

func (n nextcloudService) post(ctx context.Context, req dto.ShareRequest, body string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+sharesEndpoint, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("OCS-APIRequest", "true")
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(req.Username, req.Password)
	return n.client.Do(httpReq)
}
