package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// folderMimeType marks a Drive file as a folder.
const folderMimeType = "application/vnd.google-apps.folder"

// File is the subset of the Drive v3 file resource this client reads.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Trashed  bool   `json:"trashed"`
}

// createFileRequest is the body for files.create.
type createFileRequest struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents,omitempty"`
}

// CreateFolder creates a folder with the given name at the Drive root
// (or under parentID when non-empty) and returns the created resource.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*File, error) {
	c.logger.Debug("creating folder",
		slog.String("name", name),
		slog.String("parent_id", parentID),
	)

	reqBody := createFileRequest{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		reqBody.Parents = []string{parentID}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("drive: marshaling create request: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/files", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var f File
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("drive: decoding create response: %w", err)
	}

	return &f, nil
}

// GetFile retrieves a single file resource by ID.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	path := fmt.Sprintf("/files/%s?fields=id,name,mimeType,trashed", url.PathEscape(fileID))

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var f File
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("drive: decoding file response: %w", err)
	}

	return &f, nil
}

// DeleteFile permanently deletes a file by ID. Returns nil on success
// (HTTP 204).
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	c.logger.Debug("deleting file", slog.String("file_id", fileID))

	path := "/files/" + url.PathEscape(fileID)

	resp, err := c.Do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}

	// 204 No Content — drain and close to reuse the connection.
	defer resp.Body.Close()

	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("drive: draining delete response body: %w", copyErr)
	}

	return nil
}
