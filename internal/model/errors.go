package model

import "errors"

// 记录存储共用的错误
var (
	ErrNotFound            = errors.New("propiedad no encontrada")
	ErrDuplicateRollNumber = errors.New("ya existe una propiedad con el mismo ROL")
)
