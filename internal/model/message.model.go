package model

// Message is the sole persisted entity: one contact-form submission with
// its delivery status towards Telegram.
type Message struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Subject         string      `json:"subject"`
	Message         string      `json:"message"`
	Timestamp       string      `json:"timestamp"` // ISO 8601
	IP              string      `json:"ip,omitempty"`
	IPInfo          *IPInfo     `json:"ip_info,omitempty"`
	DeviceInfo      *DeviceInfo `json:"device_info,omitempty"`
	Read            bool        `json:"read"`
	TelegramSent    bool        `json:"telegramSent"`
	TelegramError   *string     `json:"telegramError"`
	TelegramRetryAt *string     `json:"telegramRetryAt,omitempty"`
}

// DefaultSubject is stored when the visitor left the subject blank.
const DefaultSubject = "(No subject)"

// ContactRequest carries the raw form fields as submitted.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// IPInfo is the geolocation block resolved from the visitor address.
type IPInfo struct {
	IP          string `json:"ip"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Region      string `json:"region"`
	City        string `json:"city"`
	ISP         string `json:"isp"`
	Org         string `json:"org"`
	AS          string `json:"as"`
}

// UnknownIPInfo returns the fallback block used when lookup fails.
func UnknownIPInfo(ip string) *IPInfo {
	return &IPInfo{
		IP:          ip,
		Country:     "Unknown",
		CountryCode: "??",
		Region:      "Unknown",
		City:        "Unknown",
		ISP:         "Unknown",
		Org:         "Unknown",
		AS:          "Unknown",
	}
}

// DeviceInfo is parsed from the visitor's User-Agent.
type DeviceInfo struct {
	Browser  string `json:"browser"`
	OS       string `json:"os"`
	Device   string `json:"device"`
	IsMobile bool   `json:"is_mobile"`
	IsTablet bool   `json:"is_tablet"`
	IsPC     bool   `json:"is_pc"`
	IsBot    bool   `json:"is_bot"`
}
