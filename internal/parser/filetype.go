package parser

import (
	"mime"
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xls":  true,
}

var allowedContentTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel": true,
	"application/vnd.ms-excel.sheet.macroenabled.12": true,
}

// CheckFileType 解析前的文件类型白名单校验（扩展名或 MIME 命中其一即可）
func CheckFileType(filename, contentType string) error {
	if allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return nil
	}
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil && allowedContentTypes[strings.ToLower(mt)] {
			return nil
		}
	}
	return ErrInvalidFileType
}
