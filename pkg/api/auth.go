package api

// ActivateRequest представляет запрос на активацию устройства по ключу лицензии
type ActivateRequest struct {
	LicenseKey string `json:"license_key"` // полный ключ лицензии (например RSNC24-7GK2-9QPT)
	DeviceID   string `json:"device_id"`   // UUID устройства (генерируется клиентом при первом запуске)
	DeviceName string `json:"device_name"` // человекочитаемое имя устройства (опционально)
}

// ActivateResponse представляет ответ на успешную активацию
type ActivateResponse struct {
	Token     string `json:"token"`      // JWT device token
	TenantID  string `json:"tenant_id"`  // ключ лицензии (tenant), зашит также в claims токена
	EventName string `json:"event_name"` // название события, к которому привязана лицензия
	ExpiresAt int64  `json:"expires_at"` // unix-время истечения токена
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
