// Package drive implements the remote-storage adapter against the Google
// Drive v3 REST API: list-by-name search, metadata fetch, media download,
// and multipart/related create-or-update uploads, all authorized with a
// bearer token supplied per call.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/lexora-app/lexora-sync/internal/remote"
	"github.com/lexora-app/lexora-sync/internal/syncerr"
)

const (
	// DefaultBaseURL serves metadata, search and media downloads.
	DefaultBaseURL = "https://www.googleapis.com/drive/v3/files"
	// DefaultUploadURL serves multipart uploads.
	DefaultUploadURL = "https://www.googleapis.com/upload/drive/v3/files"
	// DefaultFileName is the fixed name of the snapshot file.
	DefaultFileName = "lexora-sync.json"

	fileMIME = "application/json"
)

// Doer is the HTTP seam; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the adapter settings. Zero fields fall back to defaults.
type Config struct {
	BaseURL   string
	UploadURL string
	FileName  string
	HTTP      Doer
}

// Client is a stateless Drive adapter: it never reads or writes local state
// and every method's only side effect is the HTTP call itself.
type Client struct {
	baseURL   string
	uploadURL string
	fileName  string
	http      Doer
}

func New(cfg Config) *Client {
	c := &Client{
		baseURL:   cfg.BaseURL,
		uploadURL: cfg.UploadURL,
		fileName:  cfg.FileName,
		http:      cfg.HTTP,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.uploadURL == "" {
		c.uploadURL = DefaultUploadURL
	}
	if c.fileName == "" {
		c.fileName = DefaultFileName
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

type fileResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modifiedTime"`
}

type searchResponse struct {
	Files []fileResponse `json:"files"`
}

// do runs one request and classifies the outcome. Callers receive either a
// 2xx response or a taxonomy error.
func (c *Client) do(ctx context.Context, method, rawURL, token, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeUnknown, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &syncerr.Error{
			Code:      syncerr.CodeNetworkFailure,
			Message:   "network failure while calling the file storage API",
			Retryable: true,
			Err:       err,
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	return nil, classifyStatus(resp)
}

func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &syncerr.Error{
			Code:      syncerr.CodeTokenExpired,
			Message:   "access token expired or is invalid",
			Retryable: true,
			Status:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &syncerr.Error{
			Code:    syncerr.CodeMissingFile,
			Message: "sync file was not found",
			Status:  resp.StatusCode,
		}
	default:
		msg := strings.TrimSpace(string(readBodyBestEffort(resp)))
		if msg == "" {
			msg = fmt.Sprintf("file storage API request failed with %d", resp.StatusCode)
		}
		return &syncerr.Error{
			Code:      syncerr.CodeRemoteAPI,
			Message:   msg,
			Retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Status:    resp.StatusCode,
		}
	}
}

func readBodyBestEffort(resp *http.Response) []byte {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil
	}
	return data
}

func (c *Client) metadata(f fileResponse) (*remote.FileMetadata, bool) {
	if f.ID == "" || f.Name == "" {
		return nil, false
	}
	return &remote.FileMetadata{ID: f.ID, Name: f.Name, ModifiedTime: f.ModifiedTime}, true
}

// Find searches for the snapshot file by its fixed name, newest first.
func (c *Client) Find(ctx context.Context, token string) (*remote.FileMetadata, error) {
	params := url.Values{
		"q":        {fmt.Sprintf("name='%s' and trashed=false", c.fileName)},
		"spaces":   {"drive"},
		"pageSize": {"1"},
		"orderBy":  {"modifiedTime desc"},
		"fields":   {"files(id,name,modifiedTime)"},
	}

	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), token, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, syncerr.Wrap(syncerr.CodeRemoteAPI, "invalid JSON response while searching for the sync file", err)
	}

	if len(parsed.Files) == 0 {
		return nil, nil
	}
	md, ok := c.metadata(parsed.Files[0])
	if !ok {
		return nil, nil
	}
	return md, nil
}

func (c *Client) getByID(ctx context.Context, token, fileID string) (*remote.FileMetadata, error) {
	params := url.Values{"fields": {"id,name,modifiedTime"}}
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(fileID)+"?"+params.Encode(), token, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, syncerr.Wrap(syncerr.CodeRemoteAPI, "invalid JSON response while loading file metadata", err)
	}
	md, ok := c.metadata(parsed)
	if !ok {
		return nil, syncerr.New(syncerr.CodeMissingFile, "sync file metadata is missing")
	}
	return md, nil
}

func (c *Client) downloadContent(ctx context.Context, token, fileID string) ([]byte, error) {
	params := url.Values{"alt": {"media"}}
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(fileID)+"?"+params.Encode(), token, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &syncerr.Error{
			Code:      syncerr.CodeNetworkFailure,
			Message:   "network failure while downloading the sync file",
			Retryable: true,
			Err:       err,
		}
	}
	return data, nil
}

// Download fetches the snapshot, preferring the hinted id but never
// trusting it blindly: a MISSING_FILE on the hint falls back to a search
// by name.
func (c *Client) Download(ctx context.Context, token, preferredFileID string) (*remote.Payload, error) {
	if preferredFileID != "" {
		md, err := c.getByID(ctx, token, preferredFileID)
		switch {
		case err == nil:
			data, err := c.downloadContent(ctx, token, md.ID)
			if err != nil {
				return nil, err
			}
			return &remote.Payload{File: *md, JSON: data}, nil
		case !syncerr.HasCode(err, syncerr.CodeMissingFile):
			return nil, err
		}
	}

	md, err := c.Find(ctx, token)
	if err != nil {
		return nil, err
	}
	if md == nil {
		return nil, syncerr.New(syncerr.CodeMissingFile, "sync file was not found")
	}

	data, err := c.downloadContent(ctx, token, md.ID)
	if err != nil {
		return nil, err
	}
	return &remote.Payload{File: *md, JSON: data}, nil
}

// Upload creates the snapshot file when existingFileID is empty, otherwise
// updates it in place. The body is a multipart/related document: a JSON
// metadata part followed by the JSON content part under a random boundary.
func (c *Client) Upload(ctx context.Context, token string, payload []byte, existingFileID string) (*remote.UploadResult, error) {
	boundary := "lexora-boundary-" + uuid.NewString()
	body := buildMultipartBody(c.fileName, payload, boundary)

	params := url.Values{
		"uploadType": {"multipart"},
		"fields":     {"id,name,modifiedTime"},
	}

	endpoint := c.uploadURL + "?" + params.Encode()
	method := http.MethodPost
	if existingFileID != "" {
		endpoint = c.uploadURL + "/" + url.PathEscape(existingFileID) + "?" + params.Encode()
		method = http.MethodPatch
	}

	contentType := "multipart/related; boundary=" + boundary
	resp, err := c.do(ctx, method, endpoint, token, contentType, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, syncerr.Wrap(syncerr.CodeRemoteAPI, "invalid JSON response while uploading the sync file", err)
	}
	md, ok := c.metadata(parsed)
	if !ok {
		return nil, syncerr.New(syncerr.CodeRemoteAPI, "upload response missing file metadata")
	}

	return &remote.UploadResult{File: *md, Created: existingFileID == ""}, nil
}

func buildMultipartBody(fileName string, payload []byte, boundary string) string {
	metadata, _ := json.Marshal(map[string]string{
		"name":     fileName,
		"mimeType": fileMIME,
	})

	var b strings.Builder
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: application/json; charset=UTF-8\r\n\r\n")
	b.Write(metadata)
	b.WriteString("\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: " + fileMIME + "; charset=UTF-8\r\n\r\n")
	b.Write(payload)
	b.WriteString("\r\n")
	b.WriteString("--" + boundary + "--")
	return b.String()
}
