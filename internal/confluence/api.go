package confluence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

const (
	contentEndpoint = "content"
	pageExpand      = "ancestors,version"
	attachmentField = "file"
)

// GetContent fetches a page (or other content) by ID.
func (c *Client) GetContent(ctx context.Context, id string) (Content, error) {
	if id == "" {
		return Content{}, errors.New("content id cannot be empty")
	}
	var content Content
	if err := c.Do(ctx, http.MethodGet, path.Join(contentEndpoint, url.PathEscape(id)), nil, &content); err != nil {
		return Content{}, err
	}
	return content, nil
}

// FindPages lists pages titled title in spaceKey, with ancestors and version expanded.
func (c *Client) FindPages(ctx context.Context, title, spaceKey string) ([]Content, error) {
	params := url.Values{}
	params.Set("title", title)
	params.Set("spaceKey", spaceKey)
	params.Set("type", contentTypePage)
	params.Set("expand", pageExpand)

	var list ContentList
	if err := c.Do(ctx, http.MethodGet, contentEndpoint+"?"+params.Encode(), nil, &list); err != nil {
		return nil, err
	}
	return list.Results, nil
}

// FindChildPage returns the first page titled title in spaceKey that has
// parentID among its ancestors.
func (c *Client) FindChildPage(ctx context.Context, title, spaceKey, parentID string) (Content, bool, error) {
	pages, err := c.FindPages(ctx, title, spaceKey)
	if err != nil {
		return Content{}, false, err
	}
	for _, p := range pages {
		if p.HasAncestor(parentID) {
			return p, true, nil
		}
	}
	return Content{}, false, nil
}

// CreatePage creates a page under req.ParentID.
func (c *Client) CreatePage(ctx context.Context, req PageRequest) (Content, error) {
	if req.ParentID == "" {
		return Content{}, errors.New("parent page id cannot be empty")
	}
	body := req.payload()
	body.Ancestors = []Ancestor{{ID: req.ParentID}}

	var created Content
	if err := c.Do(ctx, http.MethodPost, contentEndpoint, body, &created); err != nil {
		return Content{}, err
	}
	return created, nil
}

// UpdatePage replaces the body of pageID, publishing it as version.
func (c *Client) UpdatePage(ctx context.Context, pageID string, version int, req PageRequest) (Content, error) {
	if pageID == "" {
		return Content{}, errors.New("page id cannot be empty")
	}
	body := req.payload()
	body.Version = &Version{Number: version}

	var updated Content
	if err := c.Do(ctx, http.MethodPut, path.Join(contentEndpoint, url.PathEscape(pageID)), body, &updated); err != nil {
		return Content{}, err
	}
	return updated, nil
}

// FindAttachment looks up an attachment on pageID by file name.
func (c *Client) FindAttachment(ctx context.Context, pageID, filename string) (Content, bool, error) {
	params := url.Values{}
	params.Set("filename", filename)
	params.Set("expand", "version")

	var list ContentList
	endpoint := attachmentsEndpoint(pageID) + "?" + params.Encode()
	if err := c.Do(ctx, http.MethodGet, endpoint, nil, &list); err != nil {
		return Content{}, false, err
	}
	if len(list.Results) == 0 || list.Results[0].ID == "" {
		return Content{}, false, nil
	}
	return list.Results[0], true, nil
}

// UploadAttachment attaches the file at localPath to pageID.
func (c *Client) UploadAttachment(ctx context.Context, pageID, localPath string) (Content, error) {
	var list ContentList
	if err := c.upload(ctx, attachmentsEndpoint(pageID), localPath, &list); err != nil {
		return Content{}, err
	}
	if len(list.Results) == 0 {
		return Content{}, nil
	}
	return list.Results[0], nil
}

// UpdateAttachmentData uploads a new version of an existing attachment.
func (c *Client) UpdateAttachmentData(ctx context.Context, pageID, attachmentID, localPath string) (Content, error) {
	if attachmentID == "" {
		return Content{}, errors.New("attachment id cannot be empty")
	}
	var updated Content
	endpoint := path.Join(attachmentsEndpoint(pageID), url.PathEscape(attachmentID), "data")
	if err := c.upload(ctx, endpoint, localPath, &updated); err != nil {
		return Content{}, err
	}
	return updated, nil
}

func attachmentsEndpoint(pageID string) string {
	return path.Join(contentEndpoint, url.PathEscape(pageID), "child", "attachment")
}

// upload posts localPath as a multipart "file" field. The body is buffered
// so it can be replayed on retry.
func (c *Client) upload(ctx context.Context, endpoint, localPath string, out any) error {
	payload, contentType, err := multipartFile(localPath)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, payload, contentType)
	if err != nil {
		return err
	}
	req.Header.Set("X-Atlassian-Token", "nocheck")
	return c.executeWithRetries(ctx, req, payload, out)
}

func multipartFile(localPath string) ([]byte, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, "", fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(attachmentField, filepath.Base(localPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read attachment %s: %w", localPath, err)
	}
	if err := w.WriteField("minorEdit", "true"); err != nil {
		return nil, "", fmt.Errorf("write form field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
