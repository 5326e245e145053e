package httpdto

// PresignUploadRequest asks for a pre-signed PUT URL for a media object.
type PresignUploadRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size" binding:"required"`
}

type PresignUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
	PublicURL string `json:"publicUrl"`
	ExpiresIn int64  `json:"expiresIn"`
}
