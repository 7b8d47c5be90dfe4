package domain

// TransportProvider selects the outbound mail adapter.
type TransportProvider string

const (
	ProviderSMTP TransportProvider = "SMTP"
	ProviderSES  TransportProvider = "SES"
)

// TransportSettings is the active mail-transport configuration, owned by
// the settings collaborator and consumed read-only by delivery.
type TransportSettings struct {
	ID               string            `json:"id" db:"id"`
	Provider         TransportProvider `json:"provider" db:"provider"`
	Host             string            `json:"host" db:"host"`
	Port             int               `json:"port" db:"port"`
	Username         string            `json:"username" db:"username"`
	Password         string            `json:"-" db:"password"`
	FromEmail        string            `json:"from_email" db:"from_email"`
	FromName         string            `json:"from_name" db:"from_name"`
	ReplyTo          string            `json:"reply_to" db:"reply_to"`
	TLSEnabled       bool              `json:"tls_enabled" db:"tls_enabled"`
	SSLEnabled       bool              `json:"ssl_enabled" db:"ssl_enabled"`
	MaxRatePerMinute int               `json:"max_rate_per_minute" db:"max_rate_per_minute"`
	Active           bool              `json:"is_active" db:"is_active"`
}
