// Package drive is a read-only client for the Google Drive v3 API, covering
// the two operations this service needs: listing transcript files in the Gong
// folder and reading file content. Token issuance is handled outside this
// service; the client carries a bearer token it is given.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gongintel/gongintel/internal/retry"
)

const baseURL = "https://www.googleapis.com/drive/v3"

// File is Drive file metadata for a transcript.
type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modifiedTime"`
	MD5Checksum  string `json:"md5Checksum,omitempty"`
	Size         string `json:"size,omitempty"`
}

type listResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Files         []File `json:"files"`
}

// APIError is a non-2xx response from the Drive API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("drive api error %d: %s", e.Status, e.Body)
}

func (e *APIError) HTTPStatus() int { return e.Status }

type Client struct {
	token    string
	folderID string
	client   *http.Client
	logger   *slog.Logger
}

func NewClient(token, folderID string, logger *slog.Logger) *Client {
	return &Client{
		token:    token,
		folderID: folderID,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// ListTranscriptFiles lists plain-text transcripts in the configured folder
// whose content mentions userEmail, newest first, following pagination.
func (c *Client) ListTranscriptFiles(ctx context.Context, userEmail string) ([]File, error) {
	return retry.Do(ctx, c.logger, "google-drive", "listTranscriptFiles", retry.Storage,
		func(ctx context.Context) ([]File, error) {
			var files []File
			pageToken := ""

			q := fmt.Sprintf("'%s' in parents and mimeType='text/plain' and trashed=false and fullText contains '%s'",
				c.folderID, userEmail)

			for {
				params := url.Values{}
				params.Set("q", q)
				params.Set("fields", "nextPageToken, files(id, name, modifiedTime, md5Checksum, size)")
				params.Set("pageSize", "100")
				params.Set("orderBy", "modifiedTime desc")
				params.Set("includeItemsFromAllDrives", "true")
				params.Set("supportsAllDrives", "true")
				if pageToken != "" {
					params.Set("pageToken", pageToken)
				}

				body, err := c.get(ctx, baseURL+"/files?"+params.Encode())
				if err != nil {
					return nil, err
				}

				var page listResponse
				if err := json.Unmarshal(body, &page); err != nil {
					return nil, fmt.Errorf("unmarshal file list: %w", err)
				}

				for _, f := range page.Files {
					if f.ID != "" && f.Name != "" {
						files = append(files, f)
					}
				}

				if page.NextPageToken == "" {
					break
				}
				pageToken = page.NextPageToken
			}

			c.logger.Debug("listed transcript files", "count", len(files))
			return files, nil
		})
}

// ReadFileContent downloads a file's content as text.
func (c *Client) ReadFileContent(ctx context.Context, fileID string) (string, error) {
	return retry.Do(ctx, c.logger, "google-drive", "readFileContent", retry.Storage,
		func(ctx context.Context) (string, error) {
			u := fmt.Sprintf("%s/files/%s?alt=media&supportsAllDrives=true", baseURL, url.PathEscape(fileID))
			body, err := c.get(ctx, u)
			if err != nil {
				return "", err
			}
			return string(body), nil
		})
}

// GetFileMetadata fetches metadata for a single file.
func (c *Client) GetFileMetadata(ctx context.Context, fileID string) (*File, error) {
	return retry.Do(ctx, c.logger, "google-drive", "getFileMetadata", retry.Storage,
		func(ctx context.Context) (*File, error) {
			u := fmt.Sprintf("%s/files/%s?fields=%s&supportsAllDrives=true",
				baseURL, url.PathEscape(fileID), url.QueryEscape("id, name, modifiedTime, md5Checksum, size"))
			body, err := c.get(ctx, u)
			if err != nil {
				return nil, err
			}
			var f File
			if err := json.Unmarshal(body, &f); err != nil {
				return nil, fmt.Errorf("unmarshal file metadata: %w", err)
			}
			if f.ID == "" || f.Name == "" {
				return nil, fmt.Errorf("incomplete metadata for file %s", fileID)
			}
			return &f, nil
		})
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
