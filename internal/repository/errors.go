package repository

import "errors"

// Ошибки хранилища попыток покупки
var (
	// ErrNotFound попытка покупки не найдена
	ErrNotFound = errors.New("purchase attempt not found")

	// ErrDuplicate попытка покупки с таким идентификатором уже существует
	ErrDuplicate = errors.New("purchase attempt already exists")

	// ErrInvalidData запись попытки покупки заполнена некорректно
	ErrInvalidData = errors.New("invalid purchase attempt data")
)
