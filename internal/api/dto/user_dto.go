package dto

// CredentialsRequest carries the username/password pair for register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HighScoreRequest carries a score update. The pointer distinguishes a
// missing field from an explicit zero.
type HighScoreRequest struct {
	HighScore *int64 `json:"highScore"`
}
