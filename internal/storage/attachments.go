package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"

	"talkio/internal/domain"

	"github.com/google/uuid"
)

// Payloads up to this size travel inline as a data URI; larger ones go
// through the object store so the socket frame stays small.
const inlineLimit = 256 * 1024

// AttachmentContent fills msg.Content for a binary message type. With
// no object store configured everything stays inline, matching the
// plain data-URI behavior.
func AttachmentContent(ctx context.Context, client *Client, msg *domain.Message, data []byte) error {
	if client == nil || len(data) <= inlineLimit {
		msg.Content = DataURI(msg.MimeType, data)
		return nil
	}

	key := "attachments/" + msg.ConversationID + "/" + uuid.New().String() + path.Ext(msg.FileName)
	if err := client.Put(ctx, key, msg.MimeType, data); err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}
	url, err := client.PresignGet(ctx, key)
	if err != nil {
		return fmt.Errorf("presign attachment: %w", err)
	}
	msg.Content = url
	return nil
}

// DataURI encodes a payload as a data URI with the given MIME type.
func DataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
