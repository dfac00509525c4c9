package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
)

// HTTPClient talks to a remote Handler. It shares the signing secret with the
// server so Resolve needs no round trip.
type HTTPClient struct {
	BaseURL string
	Token   string
	Signer  *Signer
	Client  *http.Client
}

// NewHTTPClient returns a client whose transport is traced.
func NewHTTPClient(baseURL, token string, signer *Signer) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Signer:  signer,
		Client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, errmodel.E(errmodel.KindStorageUnavailable, "blob.http", err)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err := fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusNotFound {
		return errmodel.E(errmodel.KindNotFound, op, err)
	}
	return errmodel.E(errmodel.KindStorageUnavailable, op, err)
}

func (c *HTTPClient) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+"/blobs/"+escapeKey(key), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return statusError("blob.put", resp)
	}
	return nil
}

func (c *HTTPClient) Get(ctx context.Context, key string) ([]byte, string, error) {
	u, err := c.Resolve(ctx, key)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError("blob.get", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errmodel.E(errmodel.KindStorageUnavailable, "blob.get", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *HTTPClient) Resolve(_ context.Context, key string) (string, error) {
	if err := ValidKey(key); err != nil {
		return "", err
	}
	if c.Signer == nil {
		return "", fmt.Errorf("blob client has no signer configured")
	}
	s := *c.Signer
	s.BaseURL = c.BaseURL
	u, _ := s.URL(key)
	return u, nil
}

func (c *HTTPClient) Delete(ctx context.Context, key string) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/blobs/"+escapeKey(key), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return statusError("blob.delete", resp)
	}
	return nil
}
