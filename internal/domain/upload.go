package domain

import "time"

// Upload is a photo sent by a guest against a QR code's token.
type Upload struct {
	UploadID    string     `json:"id" dynamodbav:"upload_id"`
	QRCodeID    string     `json:"qrcode_id" dynamodbav:"qrcode_id"`
	Object      string     `json:"object" dynamodbav:"object"`
	ImageURL    string     `json:"image_url" dynamodbav:"image_url"`
	ContentType string     `json:"type" dynamodbav:"type"`
	Size        int64      `json:"size" dynamodbav:"size"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created" dynamodbav:"created_at"`
}
