// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
)

// MaxUploadSize caps a document upload (20MB), matching the backend's own
// ingestion limit.
const MaxUploadSize = 20 * 1024 * 1024

// =============================================================================
// DOCUMENT UPLOAD
// =============================================================================

// Upload sends one document to the backend for indexing into the doc_qa
// knowledge base. The file is buffered in full so the retry layer can
// replay the request on transient failures.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to read upload: %v", err)}
	}
	if len(data) > MaxUploadSize {
		return nil, &APIError{
			Status:  http.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("file exceeds upload limit of %d bytes", MaxUploadSize),
		}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to build upload form: %v", err)}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to build upload form: %v", err)}
	}
	if err := writer.Close(); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to build upload form: %v", err)}
	}

	var result UploadResult
	if err := c.doJSON(ctx, &request{
		method:      http.MethodPost,
		path:        "/upload",
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
	}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
