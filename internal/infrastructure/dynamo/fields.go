package dynamo

// DynamoDB attribute names used in expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldQRCodeID  = "qrcode_id"
	fieldUploadID  = "upload_id"
	fieldToken     = "token"
	fieldOwnerID   = "owner_id"
	fieldActive    = "active"
	fieldExpiresAt = "expires_at"
	fieldDeletedAt = "deleted_at"
	fieldUpdatedAt = "updated_at"
	fieldCreatedAt = "created_at"
)

const (
	indexToken         = "token-index"
	indexOwner         = "owner_id-index"
	indexQRCodeCreated = "qrcode_id-created_at-index"
)
