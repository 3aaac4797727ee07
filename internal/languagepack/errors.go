package languagepack

import "errors"

var (
	ErrMissingLanguagePacks = errors.New("missing language packs")
	ErrPackInUse            = errors.New("language pack is in use")
	ErrInsufficientStorage  = errors.New("insufficient storage")
	ErrDownloadFailed       = errors.New("download failed")
	ErrVerificationFailed   = errors.New("verification failed")
	ErrPackNotFound         = errors.New("language pack not found")
	ErrPackNotInstalled     = errors.New("language pack not installed")
	ErrAlreadyInstalled     = errors.New("language pack already installed")
	ErrManagerClosed        = errors.New("language pack manager closed")
)
