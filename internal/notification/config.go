package notification

// SMTPConfig holds connection parameters for the SMTP transport.
type SMTPConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	FromAddr   string `json:"from_address"`
	Encryption string `json:"encryption"` // "none", "starttls", "ssl_tls"

	// RetryAttempts is the number of delivery attempts per message. Values
	// below 1 mean a single attempt.
	RetryAttempts int `json:"retry_attempts"`
}
