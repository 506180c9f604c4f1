package lsa

import "errors"

var (
	ErrEmptyCorpus = errors.New("lsa: corpus is empty")
	ErrNoRank      = errors.New("lsa: term-document matrix has no non-zero singular values")
	ErrUnknownDoc  = errors.New("lsa: document index out of range")
)
