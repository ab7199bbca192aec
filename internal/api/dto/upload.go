package dto

// UploadToken carries the correlation token tying an upload sequence
// and its comment call to one submission.
type UploadToken struct {
	Token string `json:"token"`
}

// UploadResponse is the JSON body of a successful upload call.
type UploadResponse struct {
	Upload UploadToken `json:"upload"`
}
