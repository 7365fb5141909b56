package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// LicenseKeyPattern определяет допустимый формат ключа лицензии.
// Формат: 3-5 групп по 4-8 символов (заглавные латинские буквы и цифры),
// разделенных дефисами. Первая группа - это публичный идентификатор лицензии.
// Пример: RSNC24-7GK2-9QPT
var LicenseKeyPattern = regexp.MustCompile(`^[A-Z0-9]{4,8}(-[A-Z0-9]{4,8}){2,4}$`)

// ValidateLicenseKey проверяет формат ключа лицензии
func ValidateLicenseKey(key string) error {
	if key == "" {
		return fmt.Errorf("license key cannot be empty")
	}

	if !LicenseKeyPattern.MatchString(key) {
		return fmt.Errorf("license key must be groups of uppercase letters and digits separated by dashes")
	}

	return nil
}

// LicenseID возвращает публичный идентификатор лицензии (первая группа ключа).
// По нему сервер находит запись лицензии, полный ключ проверяется по bcrypt-хешу.
func LicenseID(key string) string {
	if i := strings.IndexByte(key, '-'); i > 0 {
		return key[:i]
	}
	return key
}
