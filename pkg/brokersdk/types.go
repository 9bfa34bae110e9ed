package brokersdk

// Enrollment is returned by IssueSecondFactor.
type Enrollment struct {
	Secret     string `json:"secret"`
	QRCodeURL  string `json:"qrCodeUrl"`
	OTPAuthURL string `json:"otpauthUrl"`
}

type generateRequest struct {
	UID string `json:"uid"`
}

type verifyRequest struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

type verifyResponse struct {
	Success bool `json:"success"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// HealthResponse mirrors the broker's /livez and /readyz bodies.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
