package storage

import "errors"

var (
	// ErrLicenseNotFound лицензия с таким идентификатором не зарегистрирована
	ErrLicenseNotFound = errors.New("license not found")
	// ErrLicenseAlreadyExists лицензия с таким идентификатором уже есть
	ErrLicenseAlreadyExists = errors.New("license already exists")
	// ErrEntryNotFound заявка не найдена в пределах tenant
	ErrEntryNotFound = errors.New("entry not found")
)
